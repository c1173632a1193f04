package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/tpoints/internal/metrics"
	"github.com/vladislavdragonenkov/tpoints/internal/service/delivery"
)

// initKafkaProducer создаёт producer, если брокеры заданы.
// Пустой список возвращает nil, nil.
func initKafkaProducer(brokers []string, clientID string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, clientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, falling back to log delivery")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает producer, если он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// buildDelivery собирает канал доставки: Kafka при наличии producer, иначе журнал,
// в обоих случаях за circuit breaker.
func buildDelivery(cfg Config, producer *kafka.Producer, m *metrics.Metrics, logger *log.Entry) *delivery.Breaker {
	var next domain.DeliveryService
	if producer != nil {
		next = kafka.NewNotificationPublisher(producer, cfg.KafkaTopic)
	} else {
		next = delivery.NewLogService(logger.WithField("layer", "delivery"))
	}
	return delivery.NewBreaker(next, cfg.BreakerFailures, cfg.BreakerResetTime,
		delivery.WithBreakerLogger(logger.WithField("layer", "breaker")),
		delivery.WithBreakerMetrics(m),
	)
}
