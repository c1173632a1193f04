package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

var (
	outboxDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tpoints_outbox_deliveries_total",
		Help: "Total number of post-commit notification deliveries grouped by result.",
	}, []string{"result"})
	outboxDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tpoints_outbox_discarded_total",
		Help: "Total number of notifications discarded because their unit of work rolled back.",
	})
	outboxFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tpoints_outbox_flush_duration_seconds",
		Help:    "Duration of post-commit notification flushes.",
		Buckets: prometheus.DefBuckets,
	})
)

// FlushResult — итог доставки очереди после коммита.
type FlushResult struct {
	Delivered   int
	Undelivered int
	Failed      int
}

// Total возвращает число обработанных уведомлений.
func (r FlushResult) Total() int {
	return r.Delivered + r.Undelivered + r.Failed
}

// Queue копит уведомления одной единицы работы до её завершения.
type Queue struct {
	mu    sync.Mutex
	items []domain.NotificationEnvelope
	now   func() time.Time
}

// NewQueue создаёт пустую очередь.
func NewQueue() *Queue {
	return &Queue{now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue добавляет уведомление, проставляя ID и время создания при необходимости.
func (q *Queue) Enqueue(env domain.NotificationEnvelope) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.CreatedAt.IsZero() {
		env.CreatedAt = q.now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, env)
}

// Discard очищает очередь без доставки и возвращает число отброшенных уведомлений.
func (q *Queue) Discard() int {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.mu.Unlock()

	if n > 0 {
		outboxDiscarded.Add(float64(n))
	}
	return n
}

// Flush доставляет каждое уведомление независимо. Ошибки логируются и не повторяются.
func (q *Queue) Flush(ctx context.Context, delivery domain.DeliveryService, logger *log.Entry) FlushResult {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	var result FlushResult
	if len(items) == 0 {
		return result
	}

	started := time.Now()
	defer func() { outboxFlushDuration.Observe(time.Since(started).Seconds()) }()

	for _, env := range items {
		delivered, err := delivery.Deliver(ctx, env.RecipientID, env.Kind, env.Payload)
		entry := logger.WithFields(log.Fields{
			"notification_id": env.ID,
			"kind":            env.Kind,
			"recipient_id":    env.RecipientID,
		})
		switch {
		case err != nil:
			result.Failed++
			outboxDeliveries.WithLabelValues("failed").Inc()
			entry.WithError(fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)).Warn("notification delivery failed")
		case !delivered:
			result.Undelivered++
			outboxDeliveries.WithLabelValues("undelivered").Inc()
			entry.Info("notification recipient unreachable")
		default:
			result.Delivered++
			outboxDeliveries.WithLabelValues("delivered").Inc()
		}
	}

	return result
}
