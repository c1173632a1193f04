package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const transactionColumns = `id, account_id, amount, kind, description, order_id, activity_id, created_at`

type transactionRepository struct {
	c scope
}

func scanTransaction(row interface{ Scan(dest ...any) error }) (domain.Transaction, error) {
	var (
		txn        domain.Transaction
		kind       string
		orderID    sql.NullString
		activityID sql.NullInt64
	)
	if err := row.Scan(&txn.ID, &txn.AccountID, &txn.Amount, &kind, &txn.Description, &orderID, &activityID, &txn.CreatedAt); err != nil {
		return domain.Transaction{}, err
	}
	txn.Kind = domain.TransactionKind(kind)
	if orderID.Valid {
		id := orderID.String
		txn.OrderID = &id
	}
	if activityID.Valid {
		id := activityID.Int64
		txn.ActivityID = &id
	}
	return txn, nil
}

func (r transactionRepository) Append(ctx context.Context, txn domain.Transaction) (domain.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = r.c.now()
	}

	var orderID sql.NullString
	if txn.OrderID != nil {
		orderID = sql.NullString{String: *txn.OrderID, Valid: true}
	}
	var activityID sql.NullInt64
	if txn.ActivityID != nil {
		activityID = sql.NullInt64{Int64: *txn.ActivityID, Valid: true}
	}

	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, txn.ID, txn.AccountID, txn.Amount, string(txn.Kind), txn.Description, orderID, activityID, txn.CreatedAt)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", mapError(err))
	}
	return txn, nil
}

func (r transactionRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	if limit > 0 {
		return r.list(ctx, query+` LIMIT $2`, accountID, limit)
	}
	return r.list(ctx, query, accountID)
}

func (r transactionRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
}

func (r transactionRepository) SumByAccount(ctx context.Context, accountID int64) (int64, error) {
	var sum int64
	if err := r.c.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = $1
	`, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum transactions: %w", mapError(err))
	}
	return sum, nil
}

func (r transactionRepository) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", mapError(err))
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

var _ domain.TransactionRepository = transactionRepository{}
