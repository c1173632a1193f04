package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const defaultReportDays = 30

// Upcoming — ближайшее событие сотрудника.
type Upcoming struct {
	Account  domain.Account
	Date     time.Time
	DaysLeft int
	Years    int
}

// UpcomingBirthdays возвращает дни рождения в ближайшие days дней (30 по умолчанию).
func (e *Engine) UpcomingBirthdays(ctx context.Context, days int) ([]Upcoming, error) {
	accounts, err := e.directory.ListWithBirthDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts with birth date: %w", err)
	}
	return e.upcoming(accounts, days, func(a domain.Account) time.Time { return *a.BirthDate }, false), nil
}

// UpcomingAnniversaries возвращает юбилеи работы (от года) в ближайшие days дней.
func (e *Engine) UpcomingAnniversaries(ctx context.Context, days int) ([]Upcoming, error) {
	accounts, err := e.directory.ListWithHireDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts with hire date: %w", err)
	}
	return e.upcoming(accounts, days, func(a domain.Account) time.Time { return *a.HireDate }, true), nil
}

func (e *Engine) upcoming(accounts []domain.Account, days int, dateOf func(domain.Account) time.Time, yearsRequired bool) []Upcoming {
	if days <= 0 {
		days = defaultReportDays
	}
	now := e.now()

	out := make([]Upcoming, 0)
	for _, account := range accounts {
		start := dateOf(account)
		date, left := NextOccurrence(start, now)
		if left > days {
			continue
		}
		years := YearsAt(start, date)
		if yearsRequired && years < 1 {
			continue
		}
		out = append(out, Upcoming{Account: account, Date: date, DaysLeft: left, Years: years})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysLeft != out[j].DaysLeft {
			return out[i].DaysLeft < out[j].DaysLeft
		}
		return out[i].Account.ID < out[j].Account.ID
	})
	return out
}
