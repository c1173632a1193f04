package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/metrics"
)

// ErrCircuitOpen возвращается, пока breaker открыт.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker защищает транспорт доставки: после maxFailures ошибок подряд
// вызовы отклоняются до истечения resetTimeout.
type Breaker struct {
	next         domain.DeliveryService
	maxFailures  int
	resetTimeout time.Duration
	logger       *log.Entry
	metrics      *metrics.Metrics
	now          func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState
}

// BreakerOption настраивает Breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger задаёт logger.
func WithBreakerLogger(logger *log.Entry) BreakerOption {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBreakerMetrics подключает gauge состояния.
func WithBreakerMetrics(m *metrics.Metrics) BreakerOption {
	return func(b *Breaker) {
		b.metrics = m
	}
}

// WithBreakerClock подменяет источник времени.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBreaker оборачивает next в circuit breaker.
func NewBreaker(next domain.DeliveryService, maxFailures int, resetTimeout time.Duration, opts ...BreakerOption) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	b := &Breaker{
		next:         next,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		logger:       log.WithField("component", "delivery-breaker"),
		now:          time.Now,
		state:        CircuitClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State возвращает текущее состояние.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Deliver передаёт уведомление дальше, если breaker не открыт.
func (b *Breaker) Deliver(ctx context.Context, recipientID int64, kind domain.NotificationKind, payload map[string]any) (bool, error) {
	if err := b.allow(); err != nil {
		return false, err
	}

	delivered, err := b.next.Deliver(ctx, recipientID, kind, payload)
	b.record(err)
	return delivered, err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return nil
	}
	if b.now().Sub(b.lastFailure) > b.resetTimeout {
		b.state = CircuitHalfOpen
		b.logger.Info("circuit breaker half-open")
		return nil
	}
	return ErrCircuitOpen
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == CircuitHalfOpen || b.failures >= b.maxFailures {
			if b.state != CircuitOpen {
				b.logger.WithField("failures", b.failures).Warn("circuit breaker opened")
			}
			b.state = CircuitOpen
			b.metrics.SetBreakerOpen(true)
		}
		return
	}

	if b.state == CircuitHalfOpen {
		b.state = CircuitClosed
		b.metrics.SetBreakerOpen(false)
		b.logger.Info("circuit breaker closed")
	}
	b.failures = 0
}

var _ domain.DeliveryService = (*Breaker)(nil)
