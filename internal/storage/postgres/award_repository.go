package postgres

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type awardRepository struct {
	c scope
}

func (r awardRepository) Exists(ctx context.Context, key domain.AwardKey) (bool, error) {
	var exists bool
	if err := r.c.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM award_records
			WHERE account_id = $1 AND event_type = $2 AND occurrence_year = $3
		)
	`, key.AccountID, string(key.EventType), key.OccurrenceYear).Scan(&exists); err != nil {
		return false, fmt.Errorf("check award: %w", mapError(err))
	}
	return exists, nil
}

// Create опирается на уникальный ключ award_records_key.
func (r awardRepository) Create(ctx context.Context, record domain.AwardRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.c.now()
	}
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO award_records (account_id, event_type, occurrence_year, transaction_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		record.Key.AccountID, string(record.Key.EventType), record.Key.OccurrenceYear,
		record.TransactionID, record.Amount, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAwardAlreadyGranted
		}
		return fmt.Errorf("insert award: %w", mapError(err))
	}
	return nil
}

var _ domain.AwardRepository = awardRepository{}
