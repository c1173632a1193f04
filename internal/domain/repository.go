package domain

import "context"

// AccountRepository описывает хранилище счетов.
type AccountRepository interface {
	// Create сохраняет новый счёт с нулевым балансом.
	Create(ctx context.Context, account Account) error
	// Get возвращает счёт или ErrAccountNotFound.
	Get(ctx context.Context, id int64) (Account, error)
	// GetForUpdate блокирует строку счёта до конца транзакции.
	GetForUpdate(ctx context.Context, id int64) (Account, error)
	// SetBalance записывает новый баланс; вызывается только из Ledger.
	SetBalance(ctx context.Context, id int64, balance int64) error
	// ListByRole возвращает активные счета с любой из ролей.
	ListByRole(ctx context.Context, roles ...Role) ([]Account, error)
	// ListWithBirthDate возвращает активные счета с заполненной датой рождения.
	ListWithBirthDate(ctx context.Context) ([]Account, error)
	// ListWithHireDate возвращает активные счета с заполненной датой найма.
	ListWithHireDate(ctx context.Context) ([]Account, error)
}

// TransactionRepository хранит журнал операций. Записи только добавляются.
type TransactionRepository interface {
	Append(ctx context.Context, txn Transaction) (Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]Transaction, error)
	ListByOrder(ctx context.Context, orderID string) ([]Transaction, error)
	SumByAccount(ctx context.Context, accountID int64) (int64, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// GetForUpdate блокирует строку заказа до конца транзакции.
	GetForUpdate(ctx context.Context, id string) (Order, error)
	// UpdateStatus сохраняет статус, назначенного сотрудника и updated_at.
	UpdateStatus(ctx context.Context, order Order) error
	// ListByStatus возвращает заказы в статусе, от старых к новым.
	ListByStatus(ctx context.Context, status OrderStatus) ([]Order, error)
	// ListByAccount возвращает заказы владельца с опциональным ограничением на количество.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]Order, error)
}

// OrderHistoryRepository хранит историю смены статусов заказа.
type OrderHistoryRepository interface {
	Append(ctx context.Context, event OrderEvent) error
	List(ctx context.Context, orderID string) ([]OrderEvent, error)
}

// ProductRepository — данные каталога, которыми управляет складской коллаборатор.
type ProductRepository interface {
	Create(ctx context.Context, product Product) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetForUpdate(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, product Product) error
	ListAvailable(ctx context.Context) ([]Product, error)
}

// AwardRepository хранит ключи идемпотентности разовых начислений.
type AwardRepository interface {
	Exists(ctx context.Context, key AwardKey) (bool, error)
	// Create возвращает ErrAwardAlreadyGranted при повторе ключа.
	Create(ctx context.Context, record AwardRecord) error
}

// SettingsRepository хранит настройки автоматических событий и подписки сотрудников.
type SettingsRepository interface {
	ListEventSettings(ctx context.Context) ([]EventSettings, error)
	GetEventSettings(ctx context.Context, eventType EventType) (EventSettings, error)
	SaveEventSettings(ctx context.Context, settings EventSettings) error
	// GetPreferences возвращает подписки сотрудника; при отсутствии записи всё выключено.
	GetPreferences(ctx context.Context, accountID int64) (StaffPreferences, error)
	SavePreferences(ctx context.Context, prefs StaffPreferences) error
}

// StatusRepository отдаёт справочник статусов и правил уведомлений.
type StatusRepository interface {
	ListStatuses(ctx context.Context) ([]StatusInfo, error)
	ListTransitionRules(ctx context.Context) ([]TransitionRule, error)
}

// Tx объединяет репозитории, работающие в рамках одной транзакции БД.
type Tx interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Orders() OrderRepository
	History() OrderHistoryRepository
	Products() ProductRepository
	Awards() AwardRepository
	Settings() SettingsRepository
}

// TxManager открывает транзакцию, коммитит её при nil из fn и откатывает иначе.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Work — единица работы: транзакционные репозитории плюс очередь уведомлений,
// которые будут доставлены только после коммита.
type Work interface {
	Tx
	Enqueue(env NotificationEnvelope)
}

// UnitRunner запускает единицу работы и доставляет её уведомления после коммита.
type UnitRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context, w Work) error) error
	DoWithRetry(ctx context.Context, fn func(ctx context.Context, w Work) error) error
}
