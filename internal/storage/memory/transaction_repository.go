package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type transactionRepository struct {
	s backend
}

// Append добавляет запись в журнал, проставляя ID и время при необходимости.
func (r transactionRepository) Append(_ context.Context, txn domain.Transaction) (domain.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = r.s.now()
	}
	err := r.s.write(func(d *state) error {
		if _, ok := d.accounts[txn.AccountID]; !ok {
			return domain.ErrAccountNotFound
		}
		d.transactions = append(d.transactions, txn)
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

// ListByAccount возвращает операции счёта от новых к старым.
func (r transactionRepository) ListByAccount(_ context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	result := make([]domain.Transaction, 0)
	r.s.read(func(d *state) {
		for i := len(d.transactions) - 1; i >= 0; i-- {
			if d.transactions[i].AccountID == accountID {
				result = append(result, d.transactions[i])
			}
		}
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r transactionRepository) ListByOrder(_ context.Context, orderID string) ([]domain.Transaction, error) {
	result := make([]domain.Transaction, 0)
	r.s.read(func(d *state) {
		for _, txn := range d.transactions {
			if txn.OrderID != nil && *txn.OrderID == orderID {
				result = append(result, txn)
			}
		}
	})
	return result, nil
}

func (r transactionRepository) SumByAccount(_ context.Context, accountID int64) (int64, error) {
	var sum int64
	r.s.read(func(d *state) {
		for _, txn := range d.transactions {
			if txn.AccountID == accountID {
				sum += txn.Amount
			}
		}
	})
	return sum, nil
}

var _ domain.TransactionRepository = transactionRepository{}
