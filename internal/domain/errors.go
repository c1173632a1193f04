package domain

import "errors"

var (
	// ErrAccountNotFound возвращается, если счёт (пользователь) не найден.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientBalance — списание привело бы к отрицательному балансу.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// Ошибка нулевой суммы транзакции.
	ErrInvalidAmount = errors.New("transaction amount must be non-zero")
	// Ошибка, если знак суммы не соответствует виду транзакции.
	ErrAmountSignMismatch = errors.New("transaction amount sign does not match kind")
	// ErrUnknownTransactionKind — вид транзакции вне закрытого перечня.
	ErrUnknownTransactionKind = errors.New("unknown transaction kind")
	// ErrDescriptionRequired — описание обязательно для ручных начислений и списаний.
	ErrDescriptionRequired = errors.New("transaction description is required")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrEmptyCart — попытка оформить заказ без позиций.
	ErrEmptyCart = errors.New("cart is empty")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
	// ErrInvalidTransition — переход статуса отсутствует в таблице разрешённых.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrAlreadyAssigned — заказ уже взят в работу другим сотрудником.
	ErrAlreadyAssigned = errors.New("order already assigned to another staff member")
	// ErrAlreadyTerminal — заказ в конечном статусе и не может меняться.
	ErrAlreadyTerminal = errors.New("order is in a terminal status")
	// Ошибка отсутствующего сотрудника при взятии заказа в работу.
	ErrStaffRequired = errors.New("staff id is required")
	// Ошибка неизвестного статуса заказа.
	ErrUnknownStatus = errors.New("unknown order status")

	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock — склад не смог зарезервировать позицию.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrAwardAlreadyGranted — награда за это событие в этом году уже начислена.
	ErrAwardAlreadyGranted = errors.New("award already granted for this occurrence")
	// Ошибка неизвестного типа автоматического события.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrLockTimeout — не удалось дождаться блокировки строки; операцию можно повторить.
	ErrLockTimeout = errors.New("lock wait timeout")
	// ErrDeliveryFailed — ошибка доставки уведомления; не влияет на закоммиченные данные.
	ErrDeliveryFailed = errors.New("notification delivery failed")
)

// IsRetryable сообщает, можно ли повторить операцию целиком.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
