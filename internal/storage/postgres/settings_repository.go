package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const eventSettingsColumns = `event_type, enabled, notify_days, notify_time, reward_amount, reward_multiplier, stock_threshold`

type settingsRepository struct {
	c scope
}

func scanEventSettings(row interface{ Scan(dest ...any) error }) (domain.EventSettings, error) {
	var (
		settings   domain.EventSettings
		eventType  string
		notifyDays string
		notifyTime string
	)
	if err := row.Scan(
		&eventType, &settings.Enabled, &notifyDays, &notifyTime,
		&settings.RewardAmount, &settings.RewardMultiplier, &settings.StockThreshold,
	); err != nil {
		return domain.EventSettings{}, err
	}
	settings.Type = domain.EventType(eventType)
	settings.NotifyDays = domain.ParseNotifyDays(notifyDays)

	parsed, err := domain.ParseTimeOfDay(notifyTime)
	if err != nil {
		log.WithField("component", "postgres").WithError(err).
			WithField("event_type", eventType).Warn("invalid notify time, using default")
	}
	settings.NotifyTime = parsed
	return settings, nil
}

func (r settingsRepository) ListEventSettings(ctx context.Context) ([]domain.EventSettings, error) {
	rows, err := r.c.q.QueryContext(ctx, `SELECT `+eventSettingsColumns+` FROM event_settings`)
	if err != nil {
		return nil, fmt.Errorf("list event settings: %w", mapError(err))
	}
	defer rows.Close()

	result := make([]domain.EventSettings, 0, len(domain.EventTypes))
	for rows.Next() {
		settings, err := scanEventSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event settings: %w", err)
		}
		if !settings.Type.Valid() {
			continue
		}
		result = append(result, settings)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event settings: %w", err)
	}
	domain.SortEventSettings(result)
	return result, nil
}

func (r settingsRepository) GetEventSettings(ctx context.Context, eventType domain.EventType) (domain.EventSettings, error) {
	settings, err := scanEventSettings(r.c.q.QueryRowContext(ctx,
		`SELECT `+eventSettingsColumns+` FROM event_settings WHERE event_type = $1`, string(eventType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EventSettings{}, domain.ErrUnknownEventType
		}
		return domain.EventSettings{}, fmt.Errorf("select event settings: %w", mapError(err))
	}
	return settings, nil
}

func (r settingsRepository) SaveEventSettings(ctx context.Context, settings domain.EventSettings) error {
	if !settings.Type.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownEventType, settings.Type)
	}
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO event_settings (`+eventSettingsColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_type) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    notify_days = EXCLUDED.notify_days,
		    notify_time = EXCLUDED.notify_time,
		    reward_amount = EXCLUDED.reward_amount,
		    reward_multiplier = EXCLUDED.reward_multiplier,
		    stock_threshold = EXCLUDED.stock_threshold,
		    updated_at = EXCLUDED.updated_at
	`,
		string(settings.Type), settings.Enabled, domain.FormatNotifyDays(settings.NotifyDays),
		settings.NotifyTime.String(), settings.RewardAmount, settings.RewardMultiplier,
		settings.StockThreshold, r.c.now(),
	)
	if err != nil {
		return fmt.Errorf("save event settings: %w", mapError(err))
	}
	return nil
}

func (r settingsRepository) GetPreferences(ctx context.Context, accountID int64) (domain.StaffPreferences, error) {
	prefs := domain.StaffPreferences{AccountID: accountID}
	err := r.c.q.QueryRowContext(ctx, `
		SELECT birthday, anniversary, stock FROM staff_preferences WHERE account_id = $1
	`, accountID).Scan(&prefs.Birthday, &prefs.Anniversary, &prefs.Stock)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.StaffPreferences{}, fmt.Errorf("select preferences: %w", mapError(err))
	}
	return prefs, nil
}

func (r settingsRepository) SavePreferences(ctx context.Context, prefs domain.StaffPreferences) error {
	_, err := r.c.q.ExecContext(ctx, `
		INSERT INTO staff_preferences (account_id, birthday, anniversary, stock, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE
		SET birthday = EXCLUDED.birthday,
		    anniversary = EXCLUDED.anniversary,
		    stock = EXCLUDED.stock,
		    updated_at = EXCLUDED.updated_at
	`, prefs.AccountID, prefs.Birthday, prefs.Anniversary, prefs.Stock, r.c.now())
	if err != nil {
		return fmt.Errorf("save preferences: %w", mapError(err))
	}
	return nil
}

var _ domain.SettingsRepository = settingsRepository{}

type statusRepository struct {
	c scope
}

func (r statusRepository) ListStatuses(ctx context.Context) ([]domain.StatusInfo, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT code, name, emoji, description, comment_user, comment_hr, order_index
		FROM order_statuses
		ORDER BY order_index, code
	`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", mapError(err))
	}
	defer rows.Close()

	statuses := make([]domain.StatusInfo, 0)
	for rows.Next() {
		var (
			info domain.StatusInfo
			code string
		)
		if err := rows.Scan(&code, &info.Name, &info.Emoji, &info.Description, &info.CommentUser, &info.CommentHR, &info.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		info.Code = domain.OrderStatus(code)
		statuses = append(statuses, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}
	return statuses, nil
}

func (r statusRepository) ListTransitionRules(ctx context.Context) ([]domain.TransitionRule, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT from_status, to_status, notification_type, audience
		FROM status_transitions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", mapError(err))
	}
	defer rows.Close()

	rules := make([]domain.TransitionRule, 0)
	for rows.Next() {
		var (
			from     sql.NullString
			to       string
			kind     string
			audience string
		)
		if err := rows.Scan(&from, &to, &kind, &audience); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rule := domain.TransitionRule{
			To:       domain.OrderStatus(to),
			Kind:     domain.NotificationKind(kind),
			Audience: domain.Audience(audience),
		}
		if from.Valid {
			status := domain.OrderStatus(from.String)
			rule.From = &status
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return rules, nil
}

var _ domain.StatusRepository = statusRepository{}
