package domain

import "context"

// InventoryService описывает взаимодействие со складом.
// Вызовы выполняются в транзакции вызывающей стороны.
type InventoryService interface {
	// ReserveStock списывает остаток; false, если остатка недостаточно.
	ReserveStock(ctx context.Context, tx Tx, productID int64, variant string, qty int) (bool, error)
	// RestoreStock возвращает остаток на склад (компенсация при отмене).
	RestoreStock(ctx context.Context, tx Tx, productID int64, variant string, qty int) error
}

// DeliveryService доставляет уведомления во внешний транспорт.
// delivered=false без ошибки означает, что получатель недоступен.
type DeliveryService interface {
	Deliver(ctx context.Context, recipientID int64, kind NotificationKind, payload map[string]any) (bool, error)
}

// Directory — справочник сотрудников для планировщика.
type Directory interface {
	Get(ctx context.Context, id int64) (Account, error)
	ListByRole(ctx context.Context, roles ...Role) ([]Account, error)
	ListWithBirthDate(ctx context.Context) ([]Account, error)
	ListWithHireDate(ctx context.Context) ([]Account, error)
	// StaffSubscribedTo возвращает активных сотрудников, включивших уведомления о событии.
	StaffSubscribedTo(ctx context.Context, eventType EventType) ([]Account, error)
}
