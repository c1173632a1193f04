package domain

import (
	"fmt"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusNew — заказ создан и ожидает обработки.
	OrderStatusNew OrderStatus = "new"
	// OrderStatusProcessing — заказ взят в работу сотрудником.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusReadyForPickup — заказ готов к выдаче.
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	// OrderStatusDelivered — заказ выдан, конечный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён, конечный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses перечисляет статусы в порядке жизненного цикла.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusProcessing,
	OrderStatusReadyForPickup,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// allowedTransitions — единственный источник разрешённых переходов.
var allowedTransitions = map[OrderStatus]map[OrderStatus]struct{}{
	OrderStatusNew: {
		OrderStatusProcessing: {},
		OrderStatusCancelled:  {},
	},
	OrderStatusProcessing: {
		OrderStatusReadyForPickup: {},
		OrderStatusCancelled:      {},
	},
	OrderStatusReadyForPickup: {
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет переход по таблице разрешённых рёбер.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next, ok := allowedTransitions[s]
	if !ok {
		return false
	}
	_, ok = next[target]
	return ok
}

// ParseOrderStatus разбирает строковое значение статуса.
func ParseOrderStatus(value string) (OrderStatus, error) {
	s := OrderStatus(value)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return s, nil
}

// OrderLine — позиция заказа. Цена фиксируется в момент создания заказа.
type OrderLine struct {
	ProductID int64
	Quantity  int
	Price     int64
	Variant   string
}

// Cost возвращает стоимость позиции.
func (l OrderLine) Cost() int64 {
	return int64(l.Quantity) * l.Price
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID              string
	AccountID       int64
	TotalCost       int64
	Status          OrderStatus
	AssignedStaffID *int64
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LinesTotal считает сумму позиций.
func LinesTotal(lines []OrderLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Cost()
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Lines) == 0 {
		errs = append(errs, ErrEmptyCart)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrUnknownStatus)
	}
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("%w: product %d", ErrLineQtyInvalid, line.ProductID))
		}
		if line.Price < 0 {
			errs = append(errs, fmt.Errorf("%w: product %d", ErrLinePriceInvalid, line.ProductID))
		}
	}
	if LinesTotal(o.Lines) != o.TotalCost {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// OrderEvent — запись истории смены статусов заказа.
type OrderEvent struct {
	OrderID    string
	From       *OrderStatus
	To         OrderStatus
	ActorID    *int64
	Reason     string
	OccurredAt time.Time
}
