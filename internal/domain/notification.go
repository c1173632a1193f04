package domain

import "time"

// NotificationKind — закрытый перечень видов уведомлений.
type NotificationKind string

const (
	NotificationOrderCreated         NotificationKind = "order_created"
	NotificationOrderTaken           NotificationKind = "order_taken"
	NotificationOrderReady           NotificationKind = "order_ready"
	NotificationOrderCompleted       NotificationKind = "order_completed"
	NotificationOrderCancelled       NotificationKind = "order_cancelled"
	NotificationOrderCancelledByUser NotificationKind = "order_cancelled_by_user"

	NotificationBirthdayUpcoming    NotificationKind = "birthday_upcoming"
	NotificationBirthdayToday       NotificationKind = "birthday_today"
	NotificationBirthdayGreeting    NotificationKind = "birthday_greeting"
	NotificationAnniversaryUpcoming NotificationKind = "anniversary_upcoming"
	NotificationAnniversaryToday    NotificationKind = "anniversary_today"
	NotificationAnniversaryGreeting NotificationKind = "anniversary_greeting"
	NotificationStockLow            NotificationKind = "stock_low"
)

// NotificationKinds перечисляет все поддерживаемые виды уведомлений.
var NotificationKinds = []NotificationKind{
	NotificationOrderCreated,
	NotificationOrderTaken,
	NotificationOrderReady,
	NotificationOrderCompleted,
	NotificationOrderCancelled,
	NotificationOrderCancelledByUser,
	NotificationBirthdayUpcoming,
	NotificationBirthdayToday,
	NotificationBirthdayGreeting,
	NotificationAnniversaryUpcoming,
	NotificationAnniversaryToday,
	NotificationAnniversaryGreeting,
	NotificationStockLow,
}

// Valid проверяет, что вид уведомления поддерживается.
func (k NotificationKind) Valid() bool {
	for _, known := range NotificationKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Audience — кому адресовано уведомление о переходе статуса.
type Audience string

const (
	// AudienceOwner — владелец заказа.
	AudienceOwner Audience = "owner"
	// AudienceStaff — сотрудники, обрабатывающие заказы.
	AudienceStaff Audience = "staff"
)

// NotificationEnvelope — уведомление, ожидающее доставки после коммита.
// Не сохраняется в БД и доставляется не более одного раза.
type NotificationEnvelope struct {
	ID          string
	Kind        NotificationKind
	RecipientID int64
	Payload     map[string]any
	CreatedAt   time.Time
}
