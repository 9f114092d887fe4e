// Package metrics exposes Prometheus instrumentation for the payment path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the counters the orchestration core and sweep update.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PaymentsSubmitted       prometheus.Counter
	PaymentsFailed          prometheus.Counter
	ConfirmationsResolved   prometheus.Counter
	ConfirmationsUnresolved prometheus.Counter
	SweepRuns               prometheus.Counter
	SweepBatchesSubmitted   prometheus.Counter
	PaymentDurationSeconds  prometheus.Histogram
}

// New registers the payment metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PaymentsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yieldpay",
			Name:      "payments_submitted_total",
			Help:      "Payment batches accepted by the relay.",
		}),
		PaymentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yieldpay",
			Name:      "payments_failed_total",
			Help:      "Payment attempts that failed before relay acceptance.",
		}),
		ConfirmationsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yieldpay",
			Name:      "confirmations_resolved_total",
			Help:      "Batches whose settlement hash was resolved within the polling budget.",
		}),
		ConfirmationsUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yieldpay",
			Name:      "confirmations_unresolved_total",
			Help:      "Batches left pending after the polling budget elapsed.",
		}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yieldpay",
			Name:      "sweep_runs_total",
			Help:      "Completed rebalancing sweep passes.",
		}),
		SweepBatchesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yieldpay",
			Name:      "sweep_batches_submitted_total",
			Help:      "Rebalance batches submitted by the sweep.",
		}),
		PaymentDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "yieldpay",
			Name:      "payment_duration_seconds",
			Help:      "Wall-clock time from request to relay acceptance.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.PaymentsSubmitted,
		m.PaymentsFailed,
		m.ConfirmationsResolved,
		m.ConfirmationsUnresolved,
		m.SweepRuns,
		m.SweepBatchesSubmitted,
		m.PaymentDurationSeconds,
	)
	return m
}

func (m *Metrics) IncPaymentsSubmitted() {
	if m != nil {
		m.PaymentsSubmitted.Inc()
	}
}

func (m *Metrics) IncPaymentsFailed() {
	if m != nil {
		m.PaymentsFailed.Inc()
	}
}

func (m *Metrics) IncConfirmationsResolved() {
	if m != nil {
		m.ConfirmationsResolved.Inc()
	}
}

func (m *Metrics) IncConfirmationsUnresolved() {
	if m != nil {
		m.ConfirmationsUnresolved.Inc()
	}
}

func (m *Metrics) IncSweepRuns() {
	if m != nil {
		m.SweepRuns.Inc()
	}
}

func (m *Metrics) IncSweepBatchesSubmitted() {
	if m != nil {
		m.SweepBatchesSubmitted.Inc()
	}
}

func (m *Metrics) ObservePaymentDuration(seconds float64) {
	if m != nil {
		m.PaymentDurationSeconds.Observe(seconds)
	}
}
