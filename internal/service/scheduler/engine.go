package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/metrics"
)

const (
	defaultInterval      = 30 * time.Minute
	defaultRetryInterval = 10 * time.Minute
)

// Ledger описывает начисления, которые делает планировщик.
type Ledger interface {
	Earn(ctx context.Context, tx domain.Tx, accountID, points int64, description string) (domain.Transaction, error)
}

// Options задаёт параметры Engine.
type Options struct {
	Logger        *log.Entry
	Metrics       *metrics.Metrics
	Clock         Clock
	Marker        RunMarker
	Interval      time.Duration
	RetryInterval time.Duration
	Location      *time.Location
}

// Option настраивает Engine.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *Options) { opts.Metrics = m }
}

// WithClock подменяет часы.
func WithClock(clock Clock) Option {
	return func(opts *Options) { opts.Clock = clock }
}

// WithMarker задаёт хранилище дневных отметок.
func WithMarker(marker RunMarker) Option {
	return func(opts *Options) { opts.Marker = marker }
}

// WithInterval задаёт период между тиками.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) { opts.Interval = interval }
}

// WithRetryInterval задаёт паузу после неудачного тика.
func WithRetryInterval(interval time.Duration) Option {
	return func(opts *Options) { opts.RetryInterval = interval }
}

// WithLocation задаёт часовой пояс, в котором считаются время запуска и даты.
func WithLocation(loc *time.Location) Option {
	return func(opts *Options) { opts.Location = loc }
}

// CheckResult — итог одной проверки типа события.
type CheckResult struct {
	Type        domain.EventType
	Checked     int
	Notified    int
	Undelivered int
	Awarded     int
	AlreadyPaid int
	// FailedAccounts — счета, начисление которым упало; их повторяют следующим тиком того же дня.
	FailedAccounts []int64
	Err            error
}

// Report — итог прохода по одному или нескольким типам событий.
type Report struct {
	StartedAt time.Time
	Results   []CheckResult
	Err       error
}

// Engine периодически проверяет дни рождения, юбилеи и остатки склада.
type Engine struct {
	settings  domain.SettingsRepository
	directory domain.Directory
	products  domain.ProductRepository
	units     domain.UnitRunner
	ledger    Ledger
	delivery  domain.DeliveryService

	logger        *log.Entry
	metrics       *metrics.Metrics
	clock         Clock
	marker        RunMarker
	interval      time.Duration
	retryInterval time.Duration
	location      *time.Location

	lastTick atomic.Int64

	retryMu sync.Mutex
	retries map[domain.EventType]pendingAwards
}

// pendingAwards — счета с неудавшимся начислением за конкретный день.
type pendingAwards struct {
	day      string
	accounts map[int64]struct{}
}

// NewEngine создаёт планировщик.
func NewEngine(
	settings domain.SettingsRepository,
	directory domain.Directory,
	products domain.ProductRepository,
	units domain.UnitRunner,
	ledger Ledger,
	delivery domain.DeliveryService,
	options ...Option,
) *Engine {
	opts := Options{
		Interval:      defaultInterval,
		RetryInterval: defaultRetryInterval,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "scheduler")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{Location: opts.Location}
	}
	if opts.Marker == nil {
		opts.Marker = NewMemoryMarker()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}

	return &Engine{
		settings:      settings,
		directory:     directory,
		products:      products,
		units:         units,
		ledger:        ledger,
		delivery:      delivery,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		clock:         opts.Clock,
		marker:        opts.Marker,
		interval:      opts.Interval,
		retryInterval: opts.RetryInterval,
		location:      opts.Location,
		retries:       make(map[domain.EventType]pendingAwards),
	}
}

// Run выполняет тики до отмены ctx; после неудачного тика следующий запускается через RetryInterval.
func (e *Engine) Run(ctx context.Context) {
	e.logger.WithField("interval", e.interval).Info("scheduler started")
	defer e.logger.Info("scheduler stopped")

	for {
		wait := e.interval
		if err := e.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.WithError(err).WithField("retry_in", e.retryInterval).Warn("scheduler tick failed")
			wait = e.retryInterval
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (e *Engine) now() time.Time {
	return e.clock.Now().In(e.location)
}

// Tick запускает проверки, время которых наступило и которые ещё не выполнялись сегодня,
// и повторяет сегодняшние неудавшиеся начисления.
// Ошибка означает, что хотя бы одну проверку или начисление нужно повторить.
func (e *Engine) Tick(ctx context.Context) error {
	started := time.Now()
	now := e.now()

	settings, err := e.settings.ListEventSettings(ctx)
	if err != nil {
		return fmt.Errorf("load event settings: %w", err)
	}

	var errs error
	for _, s := range settings {
		if !s.Enabled || !e.due(s, now) {
			continue
		}

		if only := e.pending(s.Type, now); only != nil {
			result, err := e.check(ctx, s, now, only)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: retry awards: %w", s.Type, err))
				continue
			}
			e.setPending(s.Type, now, result.FailedAccounts)
			e.logResult(result)
			errs = multierr.Append(errs, result.Err)
			continue
		}

		acquired, err := e.marker.Acquire(ctx, s.Type, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Type, err))
			continue
		}
		if !acquired {
			continue
		}

		result, err := e.check(ctx, s, now, nil)
		if err != nil {
			if releaseErr := e.marker.Release(ctx, s.Type, now); releaseErr != nil {
				e.logger.WithError(releaseErr).WithField("event_type", s.Type).Warn("failed to release run marker")
			}
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Type, err))
			continue
		}
		e.setPending(s.Type, now, result.FailedAccounts)
		e.logResult(result)
		errs = multierr.Append(errs, result.Err)
	}

	e.metrics.RecordTick(time.Now(), time.Since(started))
	e.lastTick.Store(now.UnixNano())
	return errs
}

// LastTick возвращает время последнего завершённого тика; нулевое, если тиков не было.
func (e *Engine) LastTick() time.Time {
	nanos := e.lastTick.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos).In(e.location)
}

// Interval возвращает период между тиками.
func (e *Engine) Interval() time.Duration { return e.interval }

// due — время проверки на сегодня уже наступило. Повторный запуск за день отсекает RunMarker.
func (e *Engine) due(s domain.EventSettings, now time.Time) bool {
	return !now.Before(s.NotifyTime.On(now))
}

// pending возвращает счета, которым сегодня нужно повторить начисление; nil, если таких нет.
func (e *Engine) pending(eventType domain.EventType, now time.Time) map[int64]struct{} {
	e.retryMu.Lock()
	defer e.retryMu.Unlock()

	p, ok := e.retries[eventType]
	if !ok {
		return nil
	}
	if p.day != retryDayKey(now) {
		delete(e.retries, eventType)
		return nil
	}
	return p.accounts
}

func (e *Engine) setPending(eventType domain.EventType, now time.Time, failed []int64) {
	e.retryMu.Lock()
	defer e.retryMu.Unlock()

	if len(failed) == 0 {
		delete(e.retries, eventType)
		return
	}
	accounts := make(map[int64]struct{}, len(failed))
	for _, id := range failed {
		accounts[id] = struct{}{}
	}
	e.retries[eventType] = pendingAwards{day: retryDayKey(now), accounts: accounts}
}

func retryDayKey(t time.Time) string { return t.Format("2006-01-02") }

// RunManualCheck запускает проверку немедленно, без учёта времени и дневных отметок.
// При eventType == nil проверяются все включённые типы.
func (e *Engine) RunManualCheck(ctx context.Context, eventType *domain.EventType) (Report, error) {
	now := e.now()
	report := Report{StartedAt: now}

	types := domain.EventTypes
	if eventType != nil {
		if !eventType.Valid() {
			return report, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, *eventType)
		}
		types = []domain.EventType{*eventType}
	}

	for _, t := range types {
		s, err := e.settings.GetEventSettings(ctx, t)
		if err != nil {
			report.Err = multierr.Append(report.Err, fmt.Errorf("%s: load settings: %w", t, err))
			continue
		}
		if !s.Enabled {
			report.Results = append(report.Results, CheckResult{Type: t})
			continue
		}

		result, err := e.check(ctx, s, now, nil)
		if err != nil {
			result.Err = multierr.Append(result.Err, err)
		}
		e.logResult(result)
		report.Results = append(report.Results, result)
		report.Err = multierr.Append(report.Err, result.Err)
	}

	return report, report.Err
}

// check возвращает ошибку только если проверку нельзя было провести;
// сбои отдельных счетов собираются в CheckResult.Err.
// Непустой only ограничивает проход начислениями этим счетам, без уведомлений сотрудникам.
func (e *Engine) check(ctx context.Context, s domain.EventSettings, now time.Time, only map[int64]struct{}) (CheckResult, error) {
	var (
		result CheckResult
		err    error
	)
	switch s.Type {
	case domain.EventBirthday:
		result, err = e.checkBirthdays(ctx, s, now, only)
	case domain.EventAnniversary:
		result, err = e.checkAnniversaries(ctx, s, now, only)
	case domain.EventStockLow:
		result, err = e.checkLowStock(ctx, s)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrUnknownEventType, s.Type)
	}
	result.Type = s.Type

	switch {
	case err != nil:
		e.metrics.RecordCheck(string(s.Type), "error")
	case result.Err != nil:
		e.metrics.RecordCheck(string(s.Type), "partial")
	default:
		e.metrics.RecordCheck(string(s.Type), "ok")
	}
	return result, err
}

func (e *Engine) logResult(result CheckResult) {
	entry := e.logger.WithFields(log.Fields{
		"event_type":   result.Type,
		"checked":      result.Checked,
		"notified":     result.Notified,
		"undelivered":  result.Undelivered,
		"awarded":      result.Awarded,
		"already_paid": result.AlreadyPaid,
	})
	if result.Err != nil {
		entry.WithError(result.Err).Warn("event check finished with errors")
		return
	}
	entry.Info("event check finished")
}

// award начисляет баллы один раз на ключ; false, если награда уже выдана.
func (e *Engine) award(ctx context.Context, key domain.AwardKey, amount int64, description string) (bool, error) {
	err := e.units.DoWithRetry(ctx, func(ctx context.Context, w domain.Work) error {
		exists, err := w.Awards().Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("check award: %w", err)
		}
		if exists {
			return domain.ErrAwardAlreadyGranted
		}

		txn, err := e.ledger.Earn(ctx, w, key.AccountID, amount, description)
		if err != nil {
			return fmt.Errorf("earn: %w", err)
		}

		return w.Awards().Create(ctx, domain.AwardRecord{
			Key:           key,
			TransactionID: txn.ID,
			Amount:        amount,
			CreatedAt:     e.clock.Now(),
		})
	})
	if errors.Is(err, domain.ErrAwardAlreadyGranted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	e.metrics.RecordAward(string(key.EventType))
	return true, nil
}

// notify доставляет уведомление сразу; ошибки доставки только логируются.
func (e *Engine) notify(ctx context.Context, result *CheckResult, recipientID int64, kind domain.NotificationKind, payload map[string]any) {
	delivered, err := e.delivery.Deliver(ctx, recipientID, kind, payload)
	if err != nil {
		result.Undelivered++
		e.logger.WithError(fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)).WithFields(log.Fields{
			"recipient_id": recipientID,
			"kind":         kind,
		}).Warn("scheduler notification failed")
		return
	}
	if !delivered {
		result.Undelivered++
		return
	}
	result.Notified++
}
