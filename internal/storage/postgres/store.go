package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultLockTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// querier — общая часть *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store оборачивает SQL-подключение к PostgreSQL.
// Вне транзакции Store сам выступает как domain.Tx для чтения.
type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
	now         func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithLockTimeout задаёт lock_timeout для транзакций.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithClock подменяет источник времени для created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open открывает подключение к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db, lockTimeout: defaultLockTimeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB возвращает raw SQL DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithinTx выполняет fn в транзакции: commit при nil, rollback иначе.
// Ожидание блокировки дольше lockTimeout завершается ErrLockTimeout.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapError(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if _, err = sqlTx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock timeout: %w", mapError(err))
	}

	if err = fn(ctx, scope{q: sqlTx, now: s.now}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapError(err))
	}
	return nil
}

// scope привязывает репозитории к транзакции или к пулу соединений.
type scope struct {
	q   querier
	now func() time.Time
}

func (c scope) Accounts() domain.AccountRepository         { return accountRepository{c} }
func (c scope) Transactions() domain.TransactionRepository { return transactionRepository{c} }
func (c scope) Orders() domain.OrderRepository             { return orderRepository{c} }
func (c scope) History() domain.OrderHistoryRepository     { return historyRepository{c} }
func (c scope) Products() domain.ProductRepository         { return productRepository{c} }
func (c scope) Awards() domain.AwardRepository             { return awardRepository{c} }
func (c scope) Settings() domain.SettingsRepository        { return settingsRepository{c} }

func (s *Store) pool() scope { return scope{q: s.db, now: s.now} }

func (s *Store) Accounts() domain.AccountRepository         { return s.pool().Accounts() }
func (s *Store) Transactions() domain.TransactionRepository { return s.pool().Transactions() }
func (s *Store) Orders() domain.OrderRepository             { return s.pool().Orders() }
func (s *Store) History() domain.OrderHistoryRepository     { return s.pool().History() }
func (s *Store) Products() domain.ProductRepository         { return s.pool().Products() }
func (s *Store) Awards() domain.AwardRepository             { return s.pool().Awards() }
func (s *Store) Settings() domain.SettingsRepository        { return s.pool().Settings() }

// Statuses отдаёт справочник статусов из order_statuses/status_transitions.
func (s *Store) Statuses() domain.StatusRepository { return statusRepository{s.pool()} }

var (
	_ domain.TxManager = (*Store)(nil)
	_ domain.Tx        = (*Store)(nil)
	_ domain.Tx        = scope{}
)
