package memory

import (
	"context"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type settingsRepository struct {
	s backend
}

func (r settingsRepository) ListEventSettings(context.Context) ([]domain.EventSettings, error) {
	result := make([]domain.EventSettings, 0, len(domain.EventTypes))
	r.s.read(func(d *state) {
		for _, settings := range d.settings {
			settings.NotifyDays = append([]int(nil), settings.NotifyDays...)
			result = append(result, settings)
		}
	})
	domain.SortEventSettings(result)
	return result, nil
}

func (r settingsRepository) GetEventSettings(_ context.Context, eventType domain.EventType) (domain.EventSettings, error) {
	var (
		settings domain.EventSettings
		ok       bool
	)
	r.s.read(func(d *state) { settings, ok = d.settings[eventType] })
	if !ok {
		return domain.EventSettings{}, domain.ErrUnknownEventType
	}
	settings.NotifyDays = append([]int(nil), settings.NotifyDays...)
	return settings, nil
}

func (r settingsRepository) SaveEventSettings(_ context.Context, settings domain.EventSettings) error {
	if !settings.Type.Valid() {
		return domain.ErrUnknownEventType
	}
	settings.NotifyDays = append([]int(nil), settings.NotifyDays...)
	return r.s.write(func(d *state) error {
		d.settings[settings.Type] = settings
		return nil
	})
}

func (r settingsRepository) GetPreferences(_ context.Context, accountID int64) (domain.StaffPreferences, error) {
	prefs := domain.StaffPreferences{AccountID: accountID}
	r.s.read(func(d *state) {
		if stored, ok := d.prefs[accountID]; ok {
			prefs = stored
		}
	})
	return prefs, nil
}

func (r settingsRepository) SavePreferences(_ context.Context, prefs domain.StaffPreferences) error {
	return r.s.write(func(d *state) error {
		d.prefs[prefs.AccountID] = prefs
		return nil
	})
}

type statusRepository struct {
	s backend
}

func (r statusRepository) ListStatuses(context.Context) ([]domain.StatusInfo, error) {
	var result []domain.StatusInfo
	r.s.read(func(d *state) { result = append([]domain.StatusInfo(nil), d.statuses...) })
	return result, nil
}

func (r statusRepository) ListTransitionRules(context.Context) ([]domain.TransitionRule, error) {
	var result []domain.TransitionRule
	r.s.read(func(d *state) { result = append([]domain.TransitionRule(nil), d.rules...) })
	return result, nil
}

// SeedStatuses заменяет справочник статусов и правил уведомлений.
func (s *Store) SeedStatuses(statuses []domain.StatusInfo, rules []domain.TransitionRule) error {
	return s.write(func(d *state) error {
		d.statuses = append([]domain.StatusInfo(nil), statuses...)
		d.rules = append([]domain.TransitionRule(nil), rules...)
		return nil
	})
}

var (
	_ domain.SettingsRepository = settingsRepository{}
	_ domain.StatusRepository   = statusRepository{}
)
