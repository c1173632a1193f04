package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestMetrics_Record(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.RecordTransaction("earning")
	m.RecordTransaction("earning")
	m.RecordRejected("insufficient_balance")
	m.RecordTransition("cancelled")
	m.RecordCheckout()
	m.RecordCheck("birthday", "ok")
	m.RecordAward("birthday")
	m.SetBreakerOpen(true)

	if got := counterValue(t, m.ledgerTransactions.WithLabelValues("earning")); got != 2 {
		t.Fatalf("expected 2 earning transactions, got %v", got)
	}
	if got := counterValue(t, m.ledgerRejected.WithLabelValues("insufficient_balance")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := counterValue(t, m.orderTransitions.WithLabelValues("cancelled")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := counterValue(t, m.ordersCheckedOut); got != 1 {
		t.Fatalf("expected 1 checkout, got %v", got)
	}
	if got := counterValue(t, m.schedulerAwards.WithLabelValues("birthday")); got != 1 {
		t.Fatalf("expected 1 award, got %v", got)
	}
	if got := gaugeValue(t, m.breakerOpen); got != 1 {
		t.Fatalf("expected breaker gauge 1, got %v", got)
	}

	m.SetBreakerOpen(false)
	if got := gaugeValue(t, m.breakerOpen); got != 0 {
		t.Fatalf("expected breaker gauge 0, got %v", got)
	}
}

func TestMetrics_RecordTick(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	finished := time.Unix(1_700_000_000, 0)

	m.RecordTick(finished, 250*time.Millisecond)

	if got := gaugeValue(t, m.schedulerLastRun); got != float64(finished.Unix()) {
		t.Fatalf("expected last tick %d, got %v", finished.Unix(), got)
	}
}

func TestMetrics_ReRegistrationReturnsExisting(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewWithRegisterer(registry)
	second := NewWithRegisterer(registry)

	first.RecordCheckout()
	if got := counterValue(t, second.ordersCheckedOut); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTransaction("earning")
	m.RecordTick(time.Now(), time.Second)
	m.SetBreakerOpen(true)
}
