package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SackMetrics records sack mutations, persistence failures and order outcomes.
type SackMetrics struct {
	mutations       *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	orders          *prometheus.CounterVec
	requests        *prometheus.HistogramVec
}

// NewSackMetrics registers the sack metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewSackMetrics(reg prometheus.Registerer) *SackMetrics {
	if reg == nil {
		return &SackMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sack_mutations_total",
		Help: "Sack mutations by operation.",
	}, []string{"op"})
	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sack_storage_failures_total",
		Help: "Failed reads and writes against sack storage.",
	}, []string{"op"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sack_conflicts_total",
		Help: "Fulfillment conflicts by outcome.",
	}, []string{"outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Order lifecycle events by status.",
	}, []string{"status"})
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(mutations, storageFailures, conflicts, orders, requests)
	return &SackMetrics{
		mutations:       mutations,
		storageFailures: storageFailures,
		conflicts:       conflicts,
		orders:          orders,
		requests:        requests,
	}
}

// IncMutation counts a sack mutation.
func (m *SackMetrics) IncMutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncStorageFailure counts a storage read or write that failed.
func (m *SackMetrics) IncStorageFailure(op string) {
	if m == nil || m.storageFailures == nil {
		return
	}
	m.storageFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncConflict counts a conflict being raised or resolved.
func (m *SackMetrics) IncConflict(outcome string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOrder counts an order reaching status.
func (m *SackMetrics) IncOrder(status string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveRequest records an HTTP request duration.
func (m *SackMetrics) ObserveRequest(method, route, status string, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(method), normalizeLabel(route), normalizeLabel(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
