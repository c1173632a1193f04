package delivery

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// MockService — testify-заглушка DeliveryService.
type MockService struct {
	mock.Mock
}

// Deliver возвращает значения, настроенные через On("Deliver", ...).
func (m *MockService) Deliver(ctx context.Context, recipientID int64, kind domain.NotificationKind, payload map[string]any) (bool, error) {
	args := m.Called(ctx, recipientID, kind, payload)
	return args.Bool(0), args.Error(1)
}

var _ domain.DeliveryService = (*MockService)(nil)
