package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const accountColumns = `id, full_name, username, role, is_active, birth_date, hire_date, balance, created_at`

type accountRepository struct {
	c scope
}

func scanAccount(row interface{ Scan(dest ...any) error }) (domain.Account, error) {
	var (
		account   domain.Account
		role      string
		birthDate sql.NullTime
		hireDate  sql.NullTime
	)
	if err := row.Scan(
		&account.ID, &account.FullName, &account.Username, &role, &account.IsActive,
		&birthDate, &hireDate, &account.Balance, &account.CreatedAt,
	); err != nil {
		return domain.Account{}, err
	}
	account.Role = domain.Role(role)
	if birthDate.Valid {
		t := birthDate.Time
		account.BirthDate = &t
	}
	if hireDate.Valid {
		t := hireDate.Time
		account.HireDate = &t
	}
	return account, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r accountRepository) Create(ctx context.Context, account domain.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = r.c.now()
	}
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO accounts (id, full_name, username, role, is_active, birth_date, hire_date, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
	`,
		account.ID, account.FullName, account.Username, string(account.Role), account.IsActive,
		nullDate(account.BirthDate), nullDate(account.HireDate), account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %d already exists", account.ID)
		}
		return fmt.Errorf("insert account: %w", mapError(err))
	}
	return nil
}

func (r accountRepository) get(ctx context.Context, id int64, suffix string) (domain.Account, error) {
	account, err := scanAccount(r.c.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("select account: %w", mapError(err))
	}
	return account, nil
}

func (r accountRepository) Get(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, id, "")
}

func (r accountRepository) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r accountRepository) SetBalance(ctx context.Context, id int64, balance int64) error {
	res, err := r.c.q.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("update balance: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r accountRepository) ListByRole(ctx context.Context, roles ...domain.Role) ([]domain.Account, error) {
	if len(roles) == 0 {
		return []domain.Account{}, nil
	}
	placeholders := make([]string, 0, len(roles))
	args := make([]any, 0, len(roles))
	for i, role := range roles {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, string(role))
	}
	return r.list(ctx, `role IN (`+strings.Join(placeholders, ", ")+`)`, args...)
}

func (r accountRepository) ListWithBirthDate(ctx context.Context) ([]domain.Account, error) {
	return r.list(ctx, `birth_date IS NOT NULL`)
}

func (r accountRepository) ListWithHireDate(ctx context.Context) ([]domain.Account, error) {
	return r.list(ctx, `hire_date IS NOT NULL`)
}

func (r accountRepository) list(ctx context.Context, where string, args ...any) ([]domain.Account, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE is_active AND `+where+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", mapError(err))
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

var _ domain.AccountRepository = accountRepository{}
