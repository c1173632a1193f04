package domain

import (
	"fmt"
	"time"
)

// TransactionKind — закрытый перечень видов операций по счёту.
type TransactionKind string

const (
	// TransactionPurchase — оплата заказа (списание).
	TransactionPurchase TransactionKind = "purchase"
	// TransactionRefund — возврат за отменённый заказ (начисление).
	TransactionRefund TransactionKind = "refund"
	// TransactionTopUp — ручное начисление администратором.
	TransactionTopUp TransactionKind = "top_up"
	// TransactionDebit — ручное списание администратором.
	TransactionDebit TransactionKind = "debit"
	// TransactionEarning — автоматическое начисление (день рождения, юбилей, активность).
	TransactionEarning TransactionKind = "earning"
)

var transactionKindNames = map[TransactionKind]string{
	TransactionPurchase: "Purchase",
	TransactionRefund:   "Refund",
	TransactionTopUp:    "Top-up",
	TransactionDebit:    "Debit",
	TransactionEarning:  "Earning",
}

// Valid проверяет, что вид относится к поддерживаемым значениям.
func (k TransactionKind) Valid() bool {
	_, ok := transactionKindNames[k]
	return ok
}

// IsCredit сообщает, увеличивает ли операция баланс.
func (k TransactionKind) IsCredit() bool {
	switch k {
	case TransactionRefund, TransactionTopUp, TransactionEarning:
		return true
	default:
		return false
	}
}

// DisplayName возвращает человекочитаемое название вида операции.
func (k TransactionKind) DisplayName() string {
	if name, ok := transactionKindNames[k]; ok {
		return name
	}
	return string(k)
}

// ParseTransactionKind разбирает строковое значение вида операции.
func ParseTransactionKind(value string) (TransactionKind, error) {
	k := TransactionKind(value)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransactionKind, value)
	}
	return k, nil
}

// ValidateAmount проверяет, что сумма ненулевая и её знак соответствует виду.
func (k TransactionKind) ValidateAmount(amount int64) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTransactionKind, string(k))
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if k.IsCredit() != (amount > 0) {
		return fmt.Errorf("%w: %s with amount %d", ErrAmountSignMismatch, k, amount)
	}
	return nil
}

// Transaction — неизменяемая запись журнала операций.
type Transaction struct {
	ID          string
	AccountID   int64
	Amount      int64
	Kind        TransactionKind
	Description string
	OrderID     *string
	ActivityID  *int64
	CreatedAt   time.Time
}
