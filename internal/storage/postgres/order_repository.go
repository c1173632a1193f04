package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const orderColumns = `id, account_id, total_cost, status, assigned_staff_id, created_at, updated_at`

type orderRepository struct {
	c scope
}

func scanOrder(row interface{ Scan(dest ...any) error }) (domain.Order, error) {
	var (
		order  domain.Order
		status string
		staff  sql.NullInt64
	)
	if err := row.Scan(&order.ID, &order.AccountID, &order.TotalCost, &status, &staff, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	if staff.Valid {
		id := staff.Int64
		order.AssignedStaffID = &id
	}
	return order, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (r orderRepository) Create(ctx context.Context, order domain.Order) error {
	now := r.c.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		order.ID, order.AccountID, order.TotalCost, string(order.Status),
		nullInt64(order.AssignedStaffID), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s already exists", order.ID)
		}
		return fmt.Errorf("insert order: %w", mapError(err))
	}

	for i, line := range order.Lines {
		if _, err := r.c.q.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_no, product_id, quantity, price, variant)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, order.ID, i+1, line.ProductID, line.Quantity, line.Price, line.Variant); err != nil {
			return fmt.Errorf("insert order line: %w", mapError(err))
		}
	}
	return nil
}

func (r orderRepository) get(ctx context.Context, id string, suffix string) (domain.Order, error) {
	order, err := scanOrder(r.c.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", mapError(err))
	}

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return order, nil
}

func (r orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.get(ctx, id, "")
}

func (r orderRepository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r orderRepository) UpdateStatus(ctx context.Context, order domain.Order) error {
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = r.c.now()
	}
	res, err := r.c.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    assigned_staff_id = $2,
		    updated_at = $3
		WHERE id = $4
	`, string(order.Status), nullInt64(order.AssignedStaffID), order.UpdatedAt, order.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`, string(status))
}

func (r orderRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	if limit > 0 {
		return r.list(ctx, query+" LIMIT $2", accountID, limit)
	}
	return r.list(ctx, query, accountID)
}

func (r orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", mapError(err))
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	// Позиции читаются после закрытия курсора: в транзакции одно соединение.
	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (r orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT product_id, quantity, price, variant
		FROM order_lines
		WHERE order_id = $1
		ORDER BY line_no ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", mapError(err))
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.Price, &line.Variant); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

var _ domain.OrderRepository = orderRepository{}
