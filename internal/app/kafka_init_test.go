package app

import (
	"context"
	"testing"

	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/tpoints/internal/service/delivery"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	producer, err := initKafkaProducer(nil, "tpoints-test", log.WithField("test", "kafka"))
	if err != nil {
		t.Errorf("expected no error for empty brokers, got %v", err)
	}
	if producer != nil {
		t.Error("expected nil producer for empty brokers")
	}
}

func TestInitKafkaProducer_UnreachableBrokers(t *testing.T) {
	producer, err := initKafkaProducer([]string{"127.0.0.1:1"}, "tpoints-test", log.WithField("test", "kafka"))
	if err == nil {
		t.Error("expected error for unreachable brokers")
	}
	if producer != nil {
		t.Error("expected nil producer on error")
	}
}

func TestCloseKafka_NilProducer(_ *testing.T) {
	closeKafka(nil, log.WithField("test", "kafka"))
}

func TestBuildDelivery_FallsBackToLog(t *testing.T) {
	cfg := DefaultConfig()
	breaker := buildDelivery(cfg, nil, nil, log.WithField("test", "delivery"))

	delivered, err := breaker.Deliver(context.Background(), 1, "order_created", map[string]any{"order_id": "o-1"})
	if err != nil || !delivered {
		t.Fatalf("log delivery must succeed: delivered=%v err=%v", delivered, err)
	}
	if breaker.State() != delivery.CircuitClosed {
		t.Fatalf("expected closed breaker, got %s", breaker.State())
	}
}

func TestBuildDelivery_PublishesThroughKafka(t *testing.T) {
	syncProducer := mocks.NewSyncProducer(t, nil)
	syncProducer.ExpectSendMessageAndSucceed()
	producer := kafka.NewProducerFromSync(syncProducer)
	defer closeKafka(producer, log.WithField("test", "kafka"))

	cfg := DefaultConfig()
	breaker := buildDelivery(cfg, producer, nil, log.WithField("test", "delivery"))

	delivered, err := breaker.Deliver(context.Background(), 7, "order_ready", map[string]any{"order_id": "o-7"})
	if err != nil || !delivered {
		t.Fatalf("kafka delivery must succeed: delivered=%v err=%v", delivered, err)
	}
}
