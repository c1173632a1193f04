package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/metrics"
)

// TransactionInput — параметры новой операции по счёту.
type TransactionInput struct {
	AccountID   int64
	Amount      int64
	Kind        domain.TransactionKind
	Description string
	OrderID     *string
	ActivityID  *int64
}

// BulkResult — итог массовой операции.
type BulkResult struct {
	Succeeded []int64
	Failed    []int64
	Err       error
}

// Service — единственный код, меняющий балансы.
type Service struct {
	accounts     domain.AccountRepository
	transactions domain.TransactionRepository
	units        domain.UnitRunner
	logger       *log.Entry
	metrics      *metrics.Metrics
	now          func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт Ledger. accounts и transactions используются для чтения вне транзакций,
// units — для операций, которые открывают собственную единицу работы (Bulk).
func NewService(accounts domain.AccountRepository, transactions domain.TransactionRepository, units domain.UnitRunner, opts ...Option) *Service {
	s := &Service{
		accounts:     accounts,
		transactions: transactions,
		units:        units,
		logger:       log.WithField("component", "ledger"),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBalance возвращает текущий баланс счёта.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("get balance of account %d: %w", accountID, err)
	}
	return account.Balance, nil
}

// History возвращает последние операции счёта, от новых к старым.
func (s *Service) History(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, fmt.Errorf("history of account %d: %w", accountID, err)
	}
	txns, err := s.transactions.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions of account %d: %w", accountID, err)
	}
	return txns, nil
}

// CreateTransaction записывает операцию и обновляет баланс в транзакции вызывающего.
// Строка счёта блокируется до конца транзакции; ничего не коммитит и не отправляет.
func (s *Service) CreateTransaction(ctx context.Context, tx domain.Tx, in TransactionInput) (domain.Transaction, error) {
	if err := in.Kind.ValidateAmount(in.Amount); err != nil {
		s.metrics.RecordRejected("validation")
		return domain.Transaction{}, err
	}

	account, err := tx.Accounts().GetForUpdate(ctx, in.AccountID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("lock account %d: %w", in.AccountID, err)
	}

	balance := account.Balance + in.Amount
	if in.Amount < 0 && balance < 0 {
		s.metrics.RecordRejected("insufficient_balance")
		return domain.Transaction{}, fmt.Errorf("%w: account %d has %d, needs %d",
			domain.ErrInsufficientBalance, in.AccountID, account.Balance, -in.Amount)
	}

	txn, err := tx.Transactions().Append(ctx, domain.Transaction{
		AccountID:   in.AccountID,
		Amount:      in.Amount,
		Kind:        in.Kind,
		Description: in.Description,
		OrderID:     in.OrderID,
		ActivityID:  in.ActivityID,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	if err := tx.Accounts().SetBalance(ctx, in.AccountID, balance); err != nil {
		return domain.Transaction{}, fmt.Errorf("update balance of account %d: %w", in.AccountID, err)
	}

	s.metrics.RecordTransaction(string(in.Kind))
	s.logger.WithFields(log.Fields{
		"account_id":     in.AccountID,
		"transaction_id": txn.ID,
		"kind":           in.Kind,
		"amount":         in.Amount,
		"balance":        balance,
	}).Debug("transaction recorded")

	return txn, nil
}

// TopUp выполняет ручное начисление администратором.
func (s *Service) TopUp(ctx context.Context, tx domain.Tx, accountID, points int64, description string) (domain.Transaction, error) {
	if strings.TrimSpace(description) == "" {
		return domain.Transaction{}, domain.ErrDescriptionRequired
	}
	if points <= 0 {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	return s.CreateTransaction(ctx, tx, TransactionInput{
		AccountID:   accountID,
		Amount:      points,
		Kind:        domain.TransactionTopUp,
		Description: description,
	})
}

// Debit выполняет ручное списание администратором.
func (s *Service) Debit(ctx context.Context, tx domain.Tx, accountID, points int64, description string) (domain.Transaction, error) {
	if strings.TrimSpace(description) == "" {
		return domain.Transaction{}, domain.ErrDescriptionRequired
	}
	if points <= 0 {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	return s.CreateTransaction(ctx, tx, TransactionInput{
		AccountID:   accountID,
		Amount:      -points,
		Kind:        domain.TransactionDebit,
		Description: description,
	})
}

// Earn начисляет баллы за событие или активность.
func (s *Service) Earn(ctx context.Context, tx domain.Tx, accountID, points int64, description string) (domain.Transaction, error) {
	return s.CreateTransaction(ctx, tx, TransactionInput{
		AccountID:   accountID,
		Amount:      points,
		Kind:        domain.TransactionEarning,
		Description: description,
	})
}

// Purchase списывает стоимость заказа с его владельца.
func (s *Service) Purchase(ctx context.Context, tx domain.Tx, order domain.Order) (domain.Transaction, error) {
	orderID := order.ID
	return s.CreateTransaction(ctx, tx, TransactionInput{
		AccountID:   order.AccountID,
		Amount:      -order.TotalCost,
		Kind:        domain.TransactionPurchase,
		Description: fmt.Sprintf("Purchase, order #%s", order.ID),
		OrderID:     &orderID,
	})
}

// Refund возвращает ровно total_cost отменённого заказа.
func (s *Service) Refund(ctx context.Context, tx domain.Tx, order domain.Order) (domain.Transaction, error) {
	orderID := order.ID
	return s.CreateTransaction(ctx, tx, TransactionInput{
		AccountID:   order.AccountID,
		Amount:      order.TotalCost,
		Kind:        domain.TransactionRefund,
		Description: fmt.Sprintf("Refund for cancelled order #%s", order.ID),
		OrderID:     &orderID,
	})
}

// Bulk применяет одну операцию к нескольким счетам; каждый счёт в своей единице работы,
// так что ошибка одного не откатывает остальные.
func (s *Service) Bulk(ctx context.Context, accountIDs []int64, amount int64, kind domain.TransactionKind, description string) BulkResult {
	var result BulkResult
	for _, accountID := range accountIDs {
		in := TransactionInput{
			AccountID:   accountID,
			Amount:      amount,
			Kind:        kind,
			Description: description,
		}
		err := s.units.DoWithRetry(ctx, func(ctx context.Context, w domain.Work) error {
			_, err := s.CreateTransaction(ctx, w, in)
			return err
		})
		if err != nil {
			result.Failed = append(result.Failed, accountID)
			result.Err = multierr.Append(result.Err, fmt.Errorf("account %d: %w", accountID, err))
			if errors.Is(err, context.Canceled) {
				break
			}
			continue
		}
		result.Succeeded = append(result.Succeeded, accountID)
	}

	s.logger.WithFields(log.Fields{
		"kind":      kind,
		"amount":    amount,
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	}).Info("bulk ledger operation finished")

	return result
}
