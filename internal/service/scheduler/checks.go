package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const stockSummaryLimit = 10

func accountPayload(account domain.Account, date time.Time, daysLeft int) map[string]any {
	return map[string]any{
		"account_id":   account.ID,
		"full_name":    account.FullName,
		"display_name": account.DisplayName(),
		"event_date":   date.Format("2006-01-02"),
		"days_left":    daysLeft,
	}
}

func selected(only map[int64]struct{}, accountID int64) bool {
	if only == nil {
		return true
	}
	_, ok := only[accountID]
	return ok
}

func (e *Engine) checkBirthdays(ctx context.Context, s domain.EventSettings, now time.Time, only map[int64]struct{}) (CheckResult, error) {
	var result CheckResult

	accounts, err := e.directory.ListWithBirthDate(ctx)
	if err != nil {
		return result, fmt.Errorf("list accounts with birth date: %w", err)
	}
	staff, err := e.directory.StaffSubscribedTo(ctx, domain.EventBirthday)
	if err != nil {
		return result, fmt.Errorf("list subscribed staff: %w", err)
	}

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !selected(only, account.ID) {
			continue
		}
		result.Checked++

		date, days := NextOccurrence(*account.BirthDate, now)
		payload := accountPayload(account, date, days)

		if only == nil && s.NotifiesOn(days) {
			kind := domain.NotificationBirthdayUpcoming
			if days == 0 {
				kind = domain.NotificationBirthdayToday
			}
			e.notifyStaff(ctx, &result, staff, account.ID, kind, payload)
		}
		if days != 0 {
			continue
		}

		if s.RewardAmount > 0 {
			key := domain.AwardKey{AccountID: account.ID, EventType: domain.EventBirthday, OccurrenceYear: date.Year()}
			description := fmt.Sprintf("Birthday bonus %d", date.Year())
			if !e.recordAward(ctx, &result, key, s.RewardAmount, description) {
				continue
			}
		}

		greeting := accountPayload(account, date, 0)
		greeting["amount"] = s.RewardAmount
		e.notify(ctx, &result, account.ID, domain.NotificationBirthdayGreeting, greeting)
	}

	return result, nil
}

func (e *Engine) checkAnniversaries(ctx context.Context, s domain.EventSettings, now time.Time, only map[int64]struct{}) (CheckResult, error) {
	var result CheckResult

	accounts, err := e.directory.ListWithHireDate(ctx)
	if err != nil {
		return result, fmt.Errorf("list accounts with hire date: %w", err)
	}
	staff, err := e.directory.StaffSubscribedTo(ctx, domain.EventAnniversary)
	if err != nil {
		return result, fmt.Errorf("list subscribed staff: %w", err)
	}

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !selected(only, account.ID) {
			continue
		}

		date, days := NextOccurrence(*account.HireDate, now)
		years := YearsAt(*account.HireDate, date)
		if years < 1 {
			continue
		}
		result.Checked++

		amount := s.AnniversaryReward(years)
		payload := accountPayload(account, date, days)
		payload["years"] = years

		if only == nil && s.NotifiesOn(days) {
			kind := domain.NotificationAnniversaryUpcoming
			if days == 0 {
				kind = domain.NotificationAnniversaryToday
			}
			e.notifyStaff(ctx, &result, staff, account.ID, kind, payload)
		}
		if days != 0 {
			continue
		}

		if amount > 0 {
			key := domain.AwardKey{AccountID: account.ID, EventType: domain.EventAnniversary, OccurrenceYear: date.Year()}
			description := fmt.Sprintf("Work anniversary bonus: %d years (%d)", years, date.Year())
			if !e.recordAward(ctx, &result, key, amount, description) {
				continue
			}
		}

		greeting := accountPayload(account, date, 0)
		greeting["years"] = years
		greeting["amount"] = amount
		e.notify(ctx, &result, account.ID, domain.NotificationAnniversaryGreeting, greeting)
	}

	return result, nil
}

// recordAward возвращает false, если начисление упало; повторная награда ошибкой не считается.
func (e *Engine) recordAward(ctx context.Context, result *CheckResult, key domain.AwardKey, amount int64, description string) bool {
	awarded, err := e.award(ctx, key, amount, description)
	if err != nil {
		result.Err = multierr.Append(result.Err, fmt.Errorf("account %d: %w", key.AccountID, err))
		result.FailedAccounts = append(result.FailedAccounts, key.AccountID)
		e.logger.WithError(err).WithField("account_id", key.AccountID).Warn("event award failed")
		return false
	}
	if awarded {
		result.Awarded++
	} else {
		result.AlreadyPaid++
	}
	return true
}

func (e *Engine) notifyStaff(ctx context.Context, result *CheckResult, staff []domain.Account, subjectID int64, kind domain.NotificationKind, payload map[string]any) {
	for _, member := range staff {
		if member.ID == subjectID {
			continue
		}
		e.notify(ctx, result, member.ID, kind, payload)
	}
}

func (e *Engine) checkLowStock(ctx context.Context, s domain.EventSettings) (CheckResult, error) {
	var result CheckResult

	staff, err := e.directory.StaffSubscribedTo(ctx, domain.EventStockLow)
	if err != nil {
		return result, fmt.Errorf("list subscribed staff: %w", err)
	}
	if len(staff) == 0 {
		e.logger.Debug("no staff subscribed to stock alerts")
		return result, nil
	}

	products, err := e.products.ListAvailable(ctx)
	if err != nil {
		return result, fmt.Errorf("list products: %w", err)
	}
	result.Checked = len(products)

	low := make([]domain.Product, 0)
	for _, product := range products {
		if product.TotalStock() <= s.StockThreshold {
			low = append(low, product)
		}
	}
	if len(low) == 0 {
		return result, nil
	}

	payload := map[string]any{
		"threshold": s.StockThreshold,
		"count":     len(low),
		"summary":   StockSummary(low),
	}
	for _, member := range staff {
		e.notify(ctx, &result, member.ID, domain.NotificationStockLow, payload)
	}
	return result, nil
}

// StockSummary перечисляет первые десять товаров и число остальных.
func StockSummary(products []domain.Product) string {
	var b strings.Builder
	for i, product := range products {
		if i == stockSummaryLimit {
			fmt.Fprintf(&b, "...and %d more", len(products)-stockSummaryLimit)
			break
		}
		fmt.Fprintf(&b, "%s: %d left\n", product.Name, product.TotalStock())
	}
	return strings.TrimSuffix(b.String(), "\n")
}
