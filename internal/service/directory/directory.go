package directory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// Service — справочник сотрудников поверх репозиториев счетов и подписок.
type Service struct {
	accounts domain.AccountRepository
	settings domain.SettingsRepository
}

// NewService создаёт справочник.
func NewService(accounts domain.AccountRepository, settings domain.SettingsRepository) *Service {
	return &Service{accounts: accounts, settings: settings}
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Account, error) {
	return s.accounts.Get(ctx, id)
}

func (s *Service) ListByRole(ctx context.Context, roles ...domain.Role) ([]domain.Account, error) {
	return s.accounts.ListByRole(ctx, roles...)
}

func (s *Service) ListWithBirthDate(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.ListWithBirthDate(ctx)
}

func (s *Service) ListWithHireDate(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.ListWithHireDate(ctx)
}

// StaffSubscribedTo возвращает активных HR и администраторов, включивших уведомления о событии.
func (s *Service) StaffSubscribedTo(ctx context.Context, eventType domain.EventType) ([]domain.Account, error) {
	staff, err := s.accounts.ListByRole(ctx, domain.RoleHR, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}

	subscribed := make([]domain.Account, 0, len(staff))
	for _, account := range staff {
		prefs, err := s.settings.GetPreferences(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("get preferences for %d: %w", account.ID, err)
		}
		if prefs.Enabled(eventType) {
			subscribed = append(subscribed, account)
		}
	}
	return subscribed, nil
}

var _ domain.Directory = (*Service)(nil)
