package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records allocation and ledger activity.
type EngineMetrics struct {
	allocations  *prometheus.CounterVec
	retries      prometheus.Counter
	transactions *prometheus.CounterVec
	consistency  prometheus.Counter
	duration     *prometheus.HistogramVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocations_total",
		Help: "Allocation attempts by outcome.",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_retries_total",
		Help: "Allocation attempts retried after a version conflict.",
	})
	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_transactions_total",
		Help: "Ledger transactions recorded by reason.",
	}, []string{"reason"})
	consistency := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_consistency_failures_total",
		Help: "Reconciliations that found a cached balance drifting from the ledger.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_duration_seconds",
		Help:    "Duration of allocation resolutions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(allocations, retries, transactions, consistency, duration)
	return &EngineMetrics{
		allocations:  allocations,
		retries:      retries,
		transactions: transactions,
		consistency:  consistency,
		duration:     duration,
	}
}

// ObserveAllocation records one allocation attempt with its outcome and duration.
func (e *EngineMetrics) ObserveAllocation(outcome string, duration time.Duration) {
	if e == nil || e.allocations == nil {
		return
	}
	label := normalizeLabel(outcome)
	e.allocations.WithLabelValues(label).Inc()
	e.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncRetry counts a retried allocation attempt.
func (e *EngineMetrics) IncRetry() {
	if e == nil || e.retries == nil {
		return
	}
	e.retries.Inc()
}

// IncTransaction counts a recorded ledger transaction by reason.
func (e *EngineMetrics) IncTransaction(reason string) {
	if e == nil || e.transactions == nil {
		return
	}
	e.transactions.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncConsistencyFailure counts a reconciliation mismatch.
func (e *EngineMetrics) IncConsistencyFailure() {
	if e == nil || e.consistency == nil {
		return
	}
	e.consistency.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
