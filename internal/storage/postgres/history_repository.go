package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type historyRepository struct {
	c scope
}

func (r historyRepository) Append(ctx context.Context, event domain.OrderEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.c.now()
	}

	var from sql.NullString
	if event.From != nil {
		from = sql.NullString{String: string(*event.From), Valid: true}
	}

	if _, err := r.c.q.ExecContext(ctx, `
		INSERT INTO order_history (order_id, from_status, to_status, actor_id, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.OrderID, from, string(event.To), nullInt64(event.ActorID), event.Reason, event.OccurredAt); err != nil {
		return fmt.Errorf("append order history: %w", mapError(err))
	}
	return nil
}

func (r historyRepository) List(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT order_id, from_status, to_status, actor_id, reason, occurred_at
		FROM order_history
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order history: %w", mapError(err))
	}
	defer rows.Close()

	events := make([]domain.OrderEvent, 0)
	for rows.Next() {
		var (
			event domain.OrderEvent
			from  sql.NullString
			to    string
			actor sql.NullInt64
		)
		if err := rows.Scan(&event.OrderID, &from, &to, &actor, &event.Reason, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan order history: %w", err)
		}
		event.To = domain.OrderStatus(to)
		if from.Valid {
			status := domain.OrderStatus(from.String)
			event.From = &status
		}
		if actor.Valid {
			id := actor.Int64
			event.ActorID = &id
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order history: %w", err)
	}
	return events, nil
}

var _ domain.OrderHistoryRepository = historyRepository{}
