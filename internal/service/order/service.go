package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/metrics"
)

// Ledger — операции со счётом, нужные жизненному циклу заказа.
type Ledger interface {
	Purchase(ctx context.Context, tx domain.Tx, order domain.Order) (domain.Transaction, error)
	Refund(ctx context.Context, tx domain.Tx, order domain.Order) (domain.Transaction, error)
}

// Registry подбирает вид уведомления и подписи для перехода статуса.
type Registry interface {
	NotificationFor(from *domain.OrderStatus, to domain.OrderStatus, audience domain.Audience) (domain.NotificationKind, bool)
	DisplayName(code domain.OrderStatus) string
	Comment(code domain.OrderStatus, audience domain.Audience) string
}

// CartItem — позиция корзины при оформлении заказа.
type CartItem struct {
	ProductID int64
	Quantity  int
	Variant   string
}

// Service управляет жизненным циклом заказа. Все изменения выполняются
// в единице работы вызывающего; уведомления ставятся в её очередь.
type Service struct {
	orders    domain.OrderRepository
	history   domain.OrderHistoryRepository
	units     domain.UnitRunner
	ledger    Ledger
	inventory domain.InventoryService
	registry  Registry
	logger    *log.Entry
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис заказов.
func NewService(
	orders domain.OrderRepository,
	history domain.OrderHistoryRepository,
	units domain.UnitRunner,
	ledger Ledger,
	inventory domain.InventoryService,
	registry Registry,
	opts ...Option,
) *Service {
	s := &Service{
		orders:    orders,
		history:   history,
		units:     units,
		ledger:    ledger,
		inventory: inventory,
		registry:  registry,
		logger:    log.WithField("component", "orders"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFromCart создаёт заказ в статусе New с зафиксированными ценами.
// Деньги не двигаются; оплату выполняет вызывающий (см. Checkout).
func (s *Service) CreateFromCart(ctx context.Context, w domain.Work, accountID int64, lines []domain.OrderLine) (domain.Order, error) {
	now := s.now()
	order := domain.Order{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TotalCost: domain.LinesTotal(lines),
		Status:    domain.OrderStatusNew,
		Lines:     append([]domain.OrderLine(nil), lines...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}
	if _, err := w.Accounts().Get(ctx, accountID); err != nil {
		return domain.Order{}, fmt.Errorf("order owner %d: %w", accountID, err)
	}
	if err := w.Orders().Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	actor := accountID
	if err := w.History().Append(ctx, domain.OrderEvent{
		OrderID:    order.ID,
		To:         domain.OrderStatusNew,
		ActorID:    &actor,
		Reason:     "created",
		OccurredAt: now,
	}); err != nil {
		return domain.Order{}, fmt.Errorf("append order history: %w", err)
	}

	s.metrics.RecordTransition(string(domain.OrderStatusNew))
	s.notifyOwner(w, order, nil)

	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"account_id": accountID,
		"total_cost": order.TotalCost,
		"lines":      len(lines),
	}).Info("order created")

	return order, nil
}

// Checkout оформляет заказ одной единицей работы: цены из каталога,
// резерв остатков, создание заказа и списание стоимости.
func (s *Service) Checkout(ctx context.Context, accountID int64, items []CartItem) (domain.Order, error) {
	var created domain.Order
	err := s.units.DoWithRetry(ctx, func(ctx context.Context, w domain.Work) error {
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}

		lines := make([]domain.OrderLine, 0, len(items))
		for _, item := range items {
			if item.Quantity <= 0 {
				return fmt.Errorf("%w: product %d", domain.ErrLineQtyInvalid, item.ProductID)
			}
			product, err := w.Products().Get(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			reserved, err := s.inventory.ReserveStock(ctx, w, item.ProductID, item.Variant, item.Quantity)
			if err != nil {
				return fmt.Errorf("reserve product %d: %w", item.ProductID, err)
			}
			if !reserved {
				return fmt.Errorf("%w: product %d", domain.ErrInsufficientStock, item.ProductID)
			}
			lines = append(lines, domain.OrderLine{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     product.Price,
				Variant:   item.Variant,
			})
		}

		order, err := s.CreateFromCart(ctx, w, accountID, lines)
		if err != nil {
			return err
		}
		if order.TotalCost > 0 {
			if _, err := s.ledger.Purchase(ctx, w, order); err != nil {
				return err
			}
		}
		created = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordCheckout()
	return created, nil
}

// AssignToStaff берёт заказ в работу. Повторное взятие тем же сотрудником — no-op.
func (s *Service) AssignToStaff(ctx context.Context, w domain.Work, orderID string, staffID int64) (domain.Order, error) {
	order, err := w.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order %s: %w", orderID, err)
	}

	if order.Status == domain.OrderStatusProcessing && order.AssignedStaffID != nil {
		if *order.AssignedStaffID == staffID {
			return order, nil
		}
		return domain.Order{}, fmt.Errorf("%w: order %s held by staff %d", domain.ErrAlreadyAssigned, orderID, *order.AssignedStaffID)
	}
	if order.Status.Terminal() {
		return domain.Order{}, fmt.Errorf("%w: order %s is %s", domain.ErrAlreadyTerminal, orderID, order.Status)
	}
	if order.Status != domain.OrderStatusNew {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, domain.OrderStatusProcessing)
	}

	if err := s.transition(ctx, w, &order, domain.OrderStatusProcessing, &staffID, ""); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// AdvanceStatus переводит заказ по таблице переходов. Отмена выполняется только через Cancel,
// переход в Processing требует сотрудника и равносилен AssignToStaff.
func (s *Service) AdvanceStatus(ctx context.Context, w domain.Work, orderID string, target domain.OrderStatus, staffID *int64) (domain.Order, error) {
	if !target.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrUnknownStatus, target)
	}

	order, err := w.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if order.Status.Terminal() {
		return domain.Order{}, fmt.Errorf("%w: order %s is %s", domain.ErrAlreadyTerminal, orderID, order.Status)
	}
	if target == domain.OrderStatusCancelled {
		return domain.Order{}, fmt.Errorf("%w: cancellation requires cancel", domain.ErrInvalidTransition)
	}
	if target == domain.OrderStatusProcessing {
		if staffID == nil {
			return domain.Order{}, domain.ErrStaffRequired
		}
		return s.AssignToStaff(ctx, w, orderID, *staffID)
	}
	if !order.Status.CanTransitionTo(target) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, target)
	}

	if err := s.transition(ctx, w, &order, target, staffID, ""); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// Cancel отменяет незавершённый заказ: возвращает остатки на склад, возвращает
// total_cost на счёт владельца и уведомляет его. Если отменяет сам владелец,
// уведомляются и все сотрудники.
func (s *Service) Cancel(ctx context.Context, w domain.Work, orderID string, actorID int64, reason string) (domain.Order, error) {
	order, err := w.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	if order.Status.Terminal() {
		return domain.Order{}, fmt.Errorf("%w: order %s is %s", domain.ErrAlreadyTerminal, orderID, order.Status)
	}

	for _, line := range order.Lines {
		if err := s.inventory.RestoreStock(ctx, w, line.ProductID, line.Variant, line.Quantity); err != nil {
			return domain.Order{}, fmt.Errorf("restore stock for order %s: %w", orderID, err)
		}
	}
	if order.TotalCost > 0 {
		if _, err := s.ledger.Refund(ctx, w, order); err != nil {
			return domain.Order{}, fmt.Errorf("refund order %s: %w", orderID, err)
		}
	}

	from := order.Status
	if err := s.transition(ctx, w, &order, domain.OrderStatusCancelled, &actorID, reason); err != nil {
		return domain.Order{}, err
	}

	if actorID == order.AccountID {
		if err := s.notifyStaff(ctx, w, order, from); err != nil {
			return domain.Order{}, err
		}
	}

	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"actor_id":   actorID,
		"refunded":   order.TotalCost,
		"old_status": from,
	}).Info("order cancelled")

	return order, nil
}

// GetByID возвращает заказ.
func (s *Service) GetByID(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return order, nil
}

// ListByStatus возвращает заказы в статусе, от старых к новым.
func (s *Service) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStatus, status)
	}
	return s.orders.ListByStatus(ctx, status)
}

// ListByAccount возвращает заказы владельца, от новых к старым.
func (s *Service) ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.Order, error) {
	return s.orders.ListByAccount(ctx, accountID, limit)
}

// History возвращает историю смены статусов заказа.
func (s *Service) History(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, fmt.Errorf("order history %s: %w", orderID, err)
	}
	return s.history.List(ctx, orderID)
}

func (s *Service) transition(ctx context.Context, w domain.Work, order *domain.Order, to domain.OrderStatus, actorID *int64, reason string) error {
	from := order.Status
	order.Status = to
	order.UpdatedAt = s.now()
	if to == domain.OrderStatusProcessing {
		order.AssignedStaffID = actorID
	}

	if err := w.Orders().UpdateStatus(ctx, *order); err != nil {
		return fmt.Errorf("update order %s status: %w", order.ID, err)
	}
	if err := w.History().Append(ctx, domain.OrderEvent{
		OrderID:    order.ID,
		From:       &from,
		To:         to,
		ActorID:    actorID,
		Reason:     reason,
		OccurredAt: order.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("append order history: %w", err)
	}

	s.metrics.RecordTransition(string(to))
	s.notifyOwner(w, *order, &from)

	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"old_status": from,
		"new_status": to,
	}).Debug("order status changed")
	return nil
}

func (s *Service) notifyOwner(w domain.Work, order domain.Order, from *domain.OrderStatus) {
	kind, ok := s.registry.NotificationFor(from, order.Status, domain.AudienceOwner)
	if !ok {
		return
	}
	w.Enqueue(domain.NotificationEnvelope{
		Kind:        kind,
		RecipientID: order.AccountID,
		Payload:     s.payload(order, from, domain.AudienceOwner),
	})
}

func (s *Service) notifyStaff(ctx context.Context, w domain.Work, order domain.Order, from domain.OrderStatus) error {
	kind, ok := s.registry.NotificationFor(&from, order.Status, domain.AudienceStaff)
	if !ok {
		return nil
	}
	staff, err := w.Accounts().ListByRole(ctx, domain.RoleHR, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	payload := s.payload(order, &from, domain.AudienceStaff)
	for _, member := range staff {
		w.Enqueue(domain.NotificationEnvelope{
			Kind:        kind,
			RecipientID: member.ID,
			Payload:     payload,
		})
	}
	return nil
}

func (s *Service) payload(order domain.Order, from *domain.OrderStatus, audience domain.Audience) map[string]any {
	payload := map[string]any{
		"order_id":    order.ID,
		"account_id":  order.AccountID,
		"new_status":  string(order.Status),
		"total_cost":  order.TotalCost,
		"status_name": s.registry.DisplayName(order.Status),
		"comment":     s.registry.Comment(order.Status, audience),
	}
	if from != nil {
		payload["old_status"] = string(*from)
	}
	if order.AssignedStaffID != nil {
		payload["staff_id"] = *order.AssignedStaffID
	}
	return payload
}
