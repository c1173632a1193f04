package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// NotificationPublisher доставляет уведомления в Kafka topic; ключ — получатель,
// чтобы уведомления одного сотрудника шли по порядку.
type NotificationPublisher struct {
	producer *Producer
	topic    string
}

// NewNotificationPublisher создаёт DeliveryService поверх Kafka.
func NewNotificationPublisher(producer *Producer, topic string) *NotificationPublisher {
	if topic == "" {
		topic = TopicNotifications
	}
	return &NotificationPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Deliver публикует уведомление. Брокер не знает о доступности получателя,
// поэтому успешная публикация считается доставкой.
func (p *NotificationPublisher) Deliver(ctx context.Context, recipientID int64, kind domain.NotificationKind, payload map[string]any) (bool, error) {
	if p == nil || p.producer == nil {
		return false, fmt.Errorf("kafka notification publisher is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := strconv.FormatInt(recipientID, 10)
	event := NewNotificationEvent(uuid.NewString(), string(kind), recipientID, payload)
	err := p.producer.PublishEvent(p.topic, key, event,
		sarama.RecordHeader{Key: []byte(HeaderNotificationKind), Value: []byte(kind)},
		sarama.RecordHeader{Key: []byte(HeaderRecipientID), Value: []byte(key)},
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ domain.DeliveryService = (*NotificationPublisher)(nil)
