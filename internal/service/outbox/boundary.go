package outbox

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// RetryConfig — повтор единицы работы при конфликте блокировок.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// BoundaryOptions задаёт параметры Boundary.
type BoundaryOptions struct {
	Logger *log.Entry
	Retry  RetryConfig
}

// Option настраивает Boundary.
type Option func(*BoundaryOptions)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *BoundaryOptions) {
		opts.Logger = logger
	}
}

// WithRetryConfig задаёт политику повторов для DoWithRetry.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(opts *BoundaryOptions) {
		opts.Retry = cfg
	}
}

// FlushObserver получает итог доставки после коммита (используется в тестах и метриках).
type FlushObserver func(FlushResult)

// Boundary — граница единицы работы: транзакция БД плюс отложенные уведомления.
type Boundary struct {
	txm      domain.TxManager
	delivery domain.DeliveryService
	logger   *log.Entry
	retry    RetryConfig
	observer FlushObserver
}

// NewBoundary создаёт Boundary поверх менеджера транзакций и службы доставки.
func NewBoundary(txm domain.TxManager, delivery domain.DeliveryService, options ...Option) *Boundary {
	opts := BoundaryOptions{Retry: DefaultRetryConfig()}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox")
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.Retry.BackoffFactor < 1 {
		opts.Retry.BackoffFactor = 1
	}

	return &Boundary{
		txm:      txm,
		delivery: delivery,
		logger:   logger,
		retry:    opts.Retry,
	}
}

// Observe регистрирует наблюдателя за результатами Flush.
func (b *Boundary) Observe(observer FlushObserver) {
	b.observer = observer
}

type work struct {
	domain.Tx
	queue *Queue
}

func (w *work) Enqueue(env domain.NotificationEnvelope) {
	w.queue.Enqueue(env)
}

// Do выполняет fn в транзакции. После коммита уведомления доставляются,
// при ошибке или откате отбрасываются.
func (b *Boundary) Do(ctx context.Context, fn func(ctx context.Context, w domain.Work) error) error {
	queue := NewQueue()

	err := b.txm.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return fn(ctx, &work{Tx: tx, queue: queue})
	})
	if err != nil {
		if n := queue.Discard(); n > 0 {
			b.logger.WithError(err).WithField("discarded", n).Debug("unit of work rolled back, notifications discarded")
		}
		return err
	}

	// Отмена запроса после коммита не должна терять уведомления.
	result := queue.Flush(context.WithoutCancel(ctx), b.delivery, b.logger)
	if b.observer != nil {
		b.observer(result)
	}
	return nil
}

// DoWithRetry повторяет единицу работы целиком при ErrLockTimeout.
// Бизнес-ошибки не повторяются.
func (b *Boundary) DoWithRetry(ctx context.Context, fn func(ctx context.Context, w domain.Work) error) error {
	delay := b.retry.InitialDelay
	var err error

	for attempt := 1; attempt <= b.retry.MaxAttempts; attempt++ {
		err = b.Do(ctx, fn)
		if err == nil || !domain.IsRetryable(err) {
			return err
		}
		if attempt == b.retry.MaxAttempts {
			break
		}

		b.logger.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("unit of work hit lock timeout, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * b.retry.BackoffFactor)
		if b.retry.MaxDelay > 0 && delay > b.retry.MaxDelay {
			delay = b.retry.MaxDelay
		}
	}

	b.logger.WithError(err).WithField("max_attempts", b.retry.MaxAttempts).Error("unit of work failed after all retry attempts")
	return err
}
