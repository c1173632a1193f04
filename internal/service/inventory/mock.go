package inventory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// MockService — конфигурируемая заглушка InventoryService для тестов.
type MockService struct {
	mu sync.Mutex

	// OutOfStock — товары, для которых ReserveStock вернёт false.
	OutOfStock map[int64]bool
	ReserveErr error
	RestoreErr error

	ReserveCalls int
	RestoreCalls int
	Restored     map[int64]int
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		OutOfStock: make(map[int64]bool),
		Restored:   make(map[int64]int),
	}
}

// ReserveStock возвращает заранее настроенный результат и считает вызовы.
func (m *MockService) ReserveStock(_ context.Context, _ domain.Tx, productID int64, _ string, _ int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReserveCalls++
	if m.ReserveErr != nil {
		return false, m.ReserveErr
	}
	return !m.OutOfStock[productID], nil
}

// RestoreStock возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockService) RestoreStock(_ context.Context, _ domain.Tx, productID int64, _ string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RestoreCalls++
	if m.RestoreErr != nil {
		return m.RestoreErr
	}
	m.Restored[productID] += qty
	return nil
}

var _ domain.InventoryService = (*MockService)(nil)
