package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	operationsTotal *prometheus.CounterVec
	ledgerDuration  *prometheus.HistogramVec
	unrecordedTotal *prometheus.CounterVec
}

// NewMetrics registers the reconciliation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seamless",
				Subsystem: "reconcile",
				Name:      "operations_total",
				Help:      "Reconciliation operations partitioned by provider, operation and result.",
			},
			[]string{"provider", "op", "result"},
		),
		ledgerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "seamless",
				Subsystem: "ledger",
				Name:      "call_duration_seconds",
				Help:      "Latency of wallet ledger calls by provider, call and outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "call", "outcome"},
		),
		unrecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seamless",
				Subsystem: "reconcile",
				Name:      "unrecorded_total",
				Help:      "Ledger mutations that succeeded but whose journal commit failed.",
			},
			[]string{"provider", "op"},
		),
	}
}

func (m *Metrics) ObserveOperation(provider, op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = kindOf(err).String()
	}
	m.operationsTotal.WithLabelValues(provider, op, result).Inc()
}

func (m *Metrics) ObserveLedgerCall(provider, call, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ledgerDuration.WithLabelValues(provider, call, outcome).Observe(took.Seconds())
}

func (m *Metrics) ObserveUnrecorded(provider, op string) {
	if m == nil {
		return
	}
	m.unrecordedTotal.WithLabelValues(provider, op).Inc()
}
