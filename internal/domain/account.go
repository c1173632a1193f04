package domain

import (
	"fmt"
	"time"
)

// Role определяет роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleHR    Role = "hr"
	RoleAdmin Role = "admin"
)

// Valid проверяет, что роль относится к поддерживаемым значениям.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleHR, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsStaff сообщает, обрабатывает ли роль заказы и получает ли служебные уведомления.
func (r Role) IsStaff() bool {
	return r == RoleHR || r == RoleAdmin
}

// ParseRole разбирает строковое значение роли.
func ParseRole(value string) (Role, error) {
	r := Role(value)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return r, nil
}

// Account — сотрудник со встроенным балансом T-Points.
// Баланс меняется только через Ledger.
type Account struct {
	ID        int64
	FullName  string
	Username  string
	Role      Role
	IsActive  bool
	BirthDate *time.Time
	HireDate  *time.Time
	Balance   int64
	CreatedAt time.Time
}

// DisplayName возвращает @username либо полное имя.
func (a Account) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	if a.FullName != "" {
		return a.FullName
	}
	return fmt.Sprintf("#%d", a.ID)
}

// StaffPreferences — персональные настройки служебных уведомлений сотрудника.
// По умолчанию все уведомления выключены.
type StaffPreferences struct {
	AccountID   int64
	Birthday    bool
	Anniversary bool
	Stock       bool
}

// Enabled сообщает, подписан ли сотрудник на уведомления о событии.
func (p StaffPreferences) Enabled(eventType EventType) bool {
	switch eventType {
	case EventBirthday:
		return p.Birthday
	case EventAnniversary:
		return p.Anniversary
	case EventStockLow:
		return p.Stock
	default:
		return false
	}
}
