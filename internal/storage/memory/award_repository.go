package memory

import (
	"context"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type awardRepository struct {
	s backend
}

func (r awardRepository) Exists(_ context.Context, key domain.AwardKey) (bool, error) {
	var ok bool
	r.s.read(func(d *state) { _, ok = d.awards[key] })
	return ok, nil
}

// Create работает как уникальный индекс (account_id, event_type, occurrence_year).
func (r awardRepository) Create(_ context.Context, record domain.AwardRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.s.now()
	}
	return r.s.write(func(d *state) error {
		if _, exists := d.awards[record.Key]; exists {
			return domain.ErrAwardAlreadyGranted
		}
		d.awards[record.Key] = record
		return nil
	})
}

var _ domain.AwardRepository = awardRepository{}
