package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type orderRepository struct {
	s backend
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r orderRepository) Create(_ context.Context, order domain.Order) error {
	return r.s.write(func(d *state) error {
		if _, exists := d.orders[order.ID]; exists {
			return fmt.Errorf("order %s already exists", order.ID)
		}
		// Храним копию позиций, чтобы вызывающий код не мутировал состояние.
		order.Lines = append([]domain.OrderLine(nil), order.Lines...)
		d.orders[order.ID] = order
		return nil
	})
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r orderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	var (
		order domain.Order
		ok    bool
	)
	r.s.read(func(d *state) { order, ok = d.orders[id] })
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return order, nil
}

func (r orderRepository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.Get(ctx, id)
}

// UpdateStatus перезаписывает статус, назначенного сотрудника и время изменения.
func (r orderRepository) UpdateStatus(_ context.Context, order domain.Order) error {
	return r.s.write(func(d *state) error {
		current, ok := d.orders[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		current.Status = order.Status
		current.AssignedStaffID = order.AssignedStaffID
		current.UpdatedAt = order.UpdatedAt
		d.orders[order.ID] = current
		return nil
	})
}

func (r orderRepository) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	result := r.filter(func(o domain.Order) bool { return o.Status == status })
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ListByAccount возвращает заказы владельца от новых к старым, ограничивая выборку limit (если >0).
func (r orderRepository) ListByAccount(_ context.Context, accountID int64, limit int) ([]domain.Order, error) {
	result := r.filter(func(o domain.Order) bool { return o.AccountID == accountID })
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r orderRepository) filter(match func(domain.Order) bool) []domain.Order {
	result := make([]domain.Order, 0)
	r.s.read(func(d *state) {
		for _, order := range d.orders {
			if match(order) {
				order.Lines = append([]domain.OrderLine(nil), order.Lines...)
				result = append(result, order)
			}
		}
	})
	return result
}

type historyRepository struct {
	s backend
}

// Append добавляет запись истории заказа.
func (r historyRepository) Append(_ context.Context, event domain.OrderEvent) error {
	return r.s.write(func(d *state) error {
		d.history[event.OrderID] = append(d.history[event.OrderID], event)
		sort.SliceStable(d.history[event.OrderID], func(i, j int) bool {
			return d.history[event.OrderID][i].OccurredAt.Before(d.history[event.OrderID][j].OccurredAt)
		})
		return nil
	})
}

// List возвращает историю заказа в хронологическом порядке.
func (r historyRepository) List(_ context.Context, orderID string) ([]domain.OrderEvent, error) {
	var result []domain.OrderEvent
	r.s.read(func(d *state) {
		result = append(make([]domain.OrderEvent, 0, len(d.history[orderID])), d.history[orderID]...)
	})
	return result, nil
}

var (
	_ domain.OrderRepository        = orderRepository{}
	_ domain.OrderHistoryRepository = historyRepository{}
)
