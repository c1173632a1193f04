package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// Registry — справочник статусов заказа и правил уведомлений о переходах.
// Безопасен для конкурентного чтения; Load атомарно заменяет содержимое.
type Registry struct {
	repo   domain.StatusRepository
	logger *log.Entry

	mu       sync.RWMutex
	statuses map[domain.OrderStatus]domain.StatusInfo
	rules    []domain.TransitionRule
}

// New создаёт реестр со встроенными значениями по умолчанию.
// repo может быть nil, тогда Load ничего не меняет.
func New(repo domain.StatusRepository, logger *log.Entry) *Registry {
	if logger == nil {
		logger = log.WithField("component", "registry")
	}
	r := &Registry{repo: repo, logger: logger}
	r.replace(DefaultStatuses(), DefaultTransitionRules())
	return r
}

// Load перечитывает справочник из хранилища. Пустые таблицы оставляют значения по умолчанию.
func (r *Registry) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	statuses, err := r.repo.ListStatuses(ctx)
	if err != nil {
		return fmt.Errorf("load statuses: %w", err)
	}
	rules, err := r.repo.ListTransitionRules(ctx)
	if err != nil {
		return fmt.Errorf("load transition rules: %w", err)
	}

	for _, status := range statuses {
		if !status.Code.Valid() {
			return fmt.Errorf("load statuses: %w: %q", domain.ErrUnknownStatus, status.Code)
		}
	}
	for _, rule := range rules {
		if !rule.Kind.Valid() {
			return fmt.Errorf("load transition rules: unknown notification kind %q", rule.Kind)
		}
	}

	if len(statuses) == 0 {
		statuses = DefaultStatuses()
	}
	if len(rules) == 0 {
		rules = DefaultTransitionRules()
	}
	r.replace(statuses, rules)

	r.logger.WithFields(log.Fields{
		"statuses": len(statuses),
		"rules":    len(rules),
	}).Info("status registry loaded")
	return nil
}

func (r *Registry) replace(statuses []domain.StatusInfo, rules []domain.TransitionRule) {
	byCode := make(map[domain.OrderStatus]domain.StatusInfo, len(statuses))
	for _, status := range statuses {
		byCode[status.Code] = status
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = byCode
	r.rules = append([]domain.TransitionRule(nil), rules...)
}

// Status возвращает справочные данные статуса.
func (r *Registry) Status(code domain.OrderStatus) (domain.StatusInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.statuses[code]
	return status, ok
}

// Statuses возвращает статусы в порядке жизненного цикла.
func (r *Registry) Statuses() []domain.StatusInfo {
	r.mu.RLock()
	result := make([]domain.StatusInfo, 0, len(r.statuses))
	for _, status := range r.statuses {
		result = append(result, status)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].OrderIndex < result[j].OrderIndex })
	return result
}

// DisplayName возвращает "эмодзи название" или код, если статус неизвестен.
func (r *Registry) DisplayName(code domain.OrderStatus) string {
	status, ok := r.Status(code)
	if !ok {
		return string(code)
	}
	return status.DisplayName()
}

// Comment возвращает комментарий к статусу для владельца или сотрудника.
func (r *Registry) Comment(code domain.OrderStatus, audience domain.Audience) string {
	status, ok := r.Status(code)
	if !ok {
		return ""
	}
	if audience == domain.AudienceStaff {
		return status.CommentHR
	}
	return status.CommentUser
}

// NotificationFor ищет вид уведомления для перехода. Правило с точным from
// имеет приоритет над правилом для любого исходного статуса.
func (r *Registry) NotificationFor(from *domain.OrderStatus, to domain.OrderStatus, audience domain.Audience) (domain.NotificationKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		wildcard domain.NotificationKind
		found    bool
	)
	for _, rule := range r.rules {
		if rule.To != to || rule.Audience != audience {
			continue
		}
		if rule.From == nil {
			if !found {
				wildcard, found = rule.Kind, true
			}
			continue
		}
		if from != nil && *rule.From == *from {
			return rule.Kind, true
		}
	}
	return wildcard, found
}
