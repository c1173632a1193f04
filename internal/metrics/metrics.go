package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит метрики сервисов T-Points. Нулевой указатель допустим: вызовы становятся no-op.
type Metrics struct {
	// Ledger
	ledgerTransactions *prometheus.CounterVec
	ledgerRejected     *prometheus.CounterVec

	// Заказы
	orderTransitions *prometheus.CounterVec
	ordersCheckedOut prometheus.Counter

	// Планировщик
	schedulerRuns     *prometheus.CounterVec
	schedulerAwards   *prometheus.CounterVec
	schedulerDuration prometheus.Histogram
	schedulerLastRun  prometheus.Gauge

	// Доставка
	breakerOpen prometheus.Gauge
}

// New создаёт метрики в реестре по умолчанию.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer создаёт метрики в указанном реестре.
// Повторная регистрация возвращает уже зарегистрированные коллекторы.
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		ledgerTransactions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tpoints_ledger_transactions_total",
			Help: "Total number of ledger transactions recorded grouped by kind",
		}, []string{"kind"}),
		ledgerRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tpoints_ledger_rejected_total",
			Help: "Total number of ledger operations rejected grouped by reason",
		}, []string{"reason"}),
		orderTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tpoints_order_transitions_total",
			Help: "Total number of order status changes grouped by target status",
		}, []string{"status"}),
		ordersCheckedOut: registerCounter(registerer, prometheus.CounterOpts{
			Name: "tpoints_orders_checked_out_total",
			Help: "Total number of orders placed through checkout",
		}),
		schedulerRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tpoints_scheduler_checks_total",
			Help: "Total number of scheduled event checks grouped by type and result",
		}, []string{"event_type", "result"}),
		schedulerAwards: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "tpoints_scheduler_awards_total",
			Help: "Total number of one-time event awards credited grouped by type",
		}, []string{"event_type"}),
		schedulerDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "tpoints_scheduler_tick_duration_seconds",
			Help:    "Duration of scheduler ticks in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		schedulerLastRun: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "tpoints_scheduler_last_tick_timestamp_seconds",
			Help: "Unix time of the last completed scheduler tick",
		}),
		breakerOpen: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "tpoints_delivery_breaker_open",
			Help: "1 when the notification delivery circuit breaker is open",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordTransaction увеличивает счётчик записанных операций.
func (m *Metrics) RecordTransaction(kind string) {
	if m == nil {
		return
	}
	m.ledgerTransactions.WithLabelValues(kind).Inc()
}

// RecordRejected увеличивает счётчик отклонённых операций.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.ledgerRejected.WithLabelValues(reason).Inc()
}

// RecordTransition увеличивает счётчик смен статуса заказа.
func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}

// RecordCheckout увеличивает счётчик оформленных заказов.
func (m *Metrics) RecordCheckout() {
	if m == nil {
		return
	}
	m.ordersCheckedOut.Inc()
}

// RecordCheck фиксирует результат проверки события: ok или failed.
func (m *Metrics) RecordCheck(eventType, result string) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(eventType, result).Inc()
}

// RecordAward увеличивает счётчик начислений за событие.
func (m *Metrics) RecordAward(eventType string) {
	if m == nil {
		return
	}
	m.schedulerAwards.WithLabelValues(eventType).Inc()
}

// RecordTick записывает длительность и время завершения цикла планировщика.
func (m *Metrics) RecordTick(finishedAt time.Time, duration time.Duration) {
	if m == nil {
		return
	}
	m.schedulerDuration.Observe(duration.Seconds())
	m.schedulerLastRun.Set(float64(finishedAt.Unix()))
}

// SetBreakerOpen отражает состояние circuit breaker доставки.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.breakerOpen.Set(1)
		return
	}
	m.breakerOpen.Set(0)
}
