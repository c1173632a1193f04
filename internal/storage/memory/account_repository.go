package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type accountRepository struct {
	s backend
}

// Create сохраняет новый счёт, если ID ещё не занят.
func (r accountRepository) Create(_ context.Context, account domain.Account) error {
	return r.s.write(func(d *state) error {
		if _, exists := d.accounts[account.ID]; exists {
			return fmt.Errorf("account %d already exists", account.ID)
		}
		if account.CreatedAt.IsZero() {
			account.CreatedAt = r.s.now()
		}
		account.Balance = 0
		d.accounts[account.ID] = account
		return nil
	})
}

// Get возвращает счёт или ErrAccountNotFound, если его нет.
func (r accountRepository) Get(_ context.Context, id int64) (domain.Account, error) {
	var (
		account domain.Account
		ok      bool
	)
	r.s.read(func(d *state) { account, ok = d.accounts[id] })
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

// GetForUpdate совпадает с Get: транзакция уже держит эксклюзивную блокировку.
func (r accountRepository) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	return r.Get(ctx, id)
}

func (r accountRepository) SetBalance(_ context.Context, id int64, balance int64) error {
	return r.s.write(func(d *state) error {
		account, ok := d.accounts[id]
		if !ok {
			return domain.ErrAccountNotFound
		}
		account.Balance = balance
		d.accounts[id] = account
		return nil
	})
}

func (r accountRepository) ListByRole(_ context.Context, roles ...domain.Role) ([]domain.Account, error) {
	wanted := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		wanted[role] = struct{}{}
	}
	return r.list(func(a domain.Account) bool {
		_, ok := wanted[a.Role]
		return ok
	}), nil
}

func (r accountRepository) ListWithBirthDate(context.Context) ([]domain.Account, error) {
	return r.list(func(a domain.Account) bool { return a.BirthDate != nil }), nil
}

func (r accountRepository) ListWithHireDate(context.Context) ([]domain.Account, error) {
	return r.list(func(a domain.Account) bool { return a.HireDate != nil }), nil
}

func (r accountRepository) list(match func(domain.Account) bool) []domain.Account {
	result := make([]domain.Account, 0)
	r.s.read(func(d *state) {
		for _, account := range d.accounts {
			if account.IsActive && match(account) {
				result = append(result, account)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

var _ domain.AccountRepository = accountRepository{}
