package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const defaultLockTimeout = 5 * time.Second

// state — всё содержимое хранилища; транзакция получает собственную копию.
type state struct {
	accounts      map[int64]domain.Account
	transactions  []domain.Transaction
	orders        map[string]domain.Order
	history       map[string][]domain.OrderEvent
	products      map[int64]domain.Product
	nextProductID int64
	awards        map[domain.AwardKey]domain.AwardRecord
	settings      map[domain.EventType]domain.EventSettings
	prefs         map[int64]domain.StaffPreferences
	statuses      []domain.StatusInfo
	rules         []domain.TransitionRule
}

func newState() *state {
	return &state{
		accounts: make(map[int64]domain.Account),
		orders:   make(map[string]domain.Order),
		history:  make(map[string][]domain.OrderEvent),
		products: make(map[int64]domain.Product),
		awards:   make(map[domain.AwardKey]domain.AwardRecord),
		settings: make(map[domain.EventType]domain.EventSettings),
		prefs:    make(map[int64]domain.StaffPreferences),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, acc := range s.accounts {
		c.accounts[id] = acc
	}
	c.transactions = append(c.transactions, s.transactions...)
	for id, order := range s.orders {
		order.Lines = append([]domain.OrderLine(nil), order.Lines...)
		c.orders[id] = order
	}
	for id, events := range s.history {
		c.history[id] = append([]domain.OrderEvent(nil), events...)
	}
	for id, p := range s.products {
		c.products[id] = copyProduct(p)
	}
	c.nextProductID = s.nextProductID
	for k, v := range s.awards {
		c.awards[k] = v
	}
	for k, v := range s.settings {
		v.NotifyDays = append([]int(nil), v.NotifyDays...)
		c.settings[k] = v
	}
	for k, v := range s.prefs {
		c.prefs[k] = v
	}
	c.statuses = append(c.statuses, s.statuses...)
	c.rules = append(c.rules, s.rules...)
	return c
}

func copyProduct(p domain.Product) domain.Product {
	if p.Sizes != nil {
		sizes := make(map[string]int, len(p.Sizes))
		for k, v := range p.Sizes {
			sizes[k] = v
		}
		p.Sizes = sizes
	}
	return p
}

// backend — доступ репозиториев к состоянию: закоммиченному или к копии внутри транзакции.
type backend interface {
	read(fn func(d *state))
	write(fn func(d *state) error) error
	now() time.Time
}

// Store — in-memory хранилище для локальной разработки и тестов.
// Транзакция работает с собственной копией состояния и подменяет им общее только при коммите,
// поэтому чтения вне транзакции видят лишь закоммиченные данные. Записи вне транзакции
// ждут тот же семафор, что и транзакции.
type Store struct {
	mu    sync.RWMutex
	txSem chan struct{}
	data  *state

	lockTimeout time.Duration
	clock       func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithLockTimeout задаёт время ожидания транзакционной блокировки.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithClock подменяет источник времени для created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.clock = now
		}
	}
}

// NewStore создаёт пустое хранилище с настройками событий по умолчанию.
func NewStore(opts ...Option) *Store {
	s := &Store{
		txSem:       make(chan struct{}, 1),
		data:        newState(),
		lockTimeout: defaultLockTimeout,
		clock:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, settings := range domain.DefaultEventSettings() {
		s.data.settings[settings.Type] = settings
	}
	return s
}

func (s *Store) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case s.txSem <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.txSem }

// WithinTx выполняет fn эксклюзивно над копией состояния. Ошибка fn отбрасывает копию.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.RLock()
	tx := &txState{data: s.data.clone(), clock: s.clock}
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

func (s *Store) Accounts() domain.AccountRepository         { return accountRepository{s} }
func (s *Store) Transactions() domain.TransactionRepository { return transactionRepository{s} }
func (s *Store) Orders() domain.OrderRepository             { return orderRepository{s} }
func (s *Store) History() domain.OrderHistoryRepository     { return historyRepository{s} }
func (s *Store) Products() domain.ProductRepository         { return productRepository{s} }
func (s *Store) Awards() domain.AwardRepository             { return awardRepository{s} }
func (s *Store) Settings() domain.SettingsRepository        { return settingsRepository{s} }

// Statuses возвращает справочник статусов; пустой, пока не вызван SeedStatuses.
func (s *Store) Statuses() domain.StatusRepository { return statusRepository{s} }

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// write — одиночная запись вне транзакции, сериализованная с транзакциями.
func (s *Store) write(fn func(d *state) error) error {
	if err := s.acquire(context.Background()); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) now() time.Time { return s.clock() }

// txState — репозитории одной транзакции поверх её собственной копии состояния.
type txState struct {
	mu    sync.Mutex
	data  *state
	clock func() time.Time
}

func (t *txState) Accounts() domain.AccountRepository         { return accountRepository{t} }
func (t *txState) Transactions() domain.TransactionRepository { return transactionRepository{t} }
func (t *txState) Orders() domain.OrderRepository             { return orderRepository{t} }
func (t *txState) History() domain.OrderHistoryRepository     { return historyRepository{t} }
func (t *txState) Products() domain.ProductRepository         { return productRepository{t} }
func (t *txState) Awards() domain.AwardRepository             { return awardRepository{t} }
func (t *txState) Settings() domain.SettingsRepository        { return settingsRepository{t} }

func (t *txState) read(fn func(d *state)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.data)
}

func (t *txState) write(fn func(d *state) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t.data)
}

func (t *txState) now() time.Time { return t.clock() }

var (
	_ domain.Tx        = (*Store)(nil)
	_ domain.Tx        = (*txState)(nil)
	_ domain.TxManager = (*Store)(nil)
)
