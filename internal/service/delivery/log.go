package delivery

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// LogService пишет уведомления в лог; используется, когда брокер не настроен.
type LogService struct {
	logger *log.Entry
}

// NewLogService создаёт LogService.
func NewLogService(logger *log.Entry) *LogService {
	if logger == nil {
		logger = log.WithField("component", "delivery-log")
	}
	return &LogService{logger: logger}
}

// Deliver всегда считает уведомление доставленным.
func (s *LogService) Deliver(_ context.Context, recipientID int64, kind domain.NotificationKind, payload map[string]any) (bool, error) {
	s.logger.WithFields(log.Fields{
		"recipient_id": recipientID,
		"kind":         kind,
		"payload":      payload,
	}).Info("notification")
	return true, nil
}

var _ domain.DeliveryService = (*LogService)(nil)
