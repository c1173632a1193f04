package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Topics для Kafka
const (
	TopicNotifications = "tpoints.notifications"
)

// Kafka headers уведомлений
const (
	HeaderNotificationKind = "x-notification-kind"
	HeaderRecipientID      = "x-recipient-id"
)

// NotificationEvent — уведомление в том виде, в каком его читает транспорт доставки.
type NotificationEvent struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	RecipientID int64          `json:"recipient_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	PublishedAt time.Time      `json:"published_at"`
}

// NewNotificationEvent создает новое событие уведомления
func NewNotificationEvent(id, kind string, recipientID int64, payload map[string]any) *NotificationEvent {
	return &NotificationEvent{
		ID:          id,
		Kind:        kind,
		RecipientID: recipientID,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}
}

// ParseNotificationEvent парсит NotificationEvent из сообщения
func ParseNotificationEvent(message *sarama.ConsumerMessage) (*NotificationEvent, error) {
	var event NotificationEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification event: %w", err)
	}
	return &event, nil
}
