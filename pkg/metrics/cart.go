package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart store activity and commerce backend latency.
type CartMetrics struct {
	operations *prometheus.CounterVec
	backend    *prometheus.HistogramVec
	resyncs    prometheus.Counter
	sessions   prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_operations_total",
		Help:      "Cart store operations by outcome.",
	}, []string{"op", "outcome"})
	backend := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "backend_duration_seconds",
		Help:      "Latency of commerce backend calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	resyncs := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "inventory_resyncs_total",
		Help:      "Wholesale inventory adjustment resyncs from a fetched cart.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "live_sessions",
		Help:      "Shopper sessions currently held in memory.",
	})
	reg.MustRegister(operations, backend, resyncs, sessions)
	return &CartMetrics{
		operations: operations,
		backend:    backend,
		resyncs:    resyncs,
		sessions:   sessions,
	}
}

// ObserveOperation counts one cart operation with its outcome label.
func (c *CartMetrics) ObserveOperation(op, outcome string) {
	if c == nil || c.operations == nil {
		return
	}
	c.operations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// ObserveBackend records the latency of one backend call.
func (c *CartMetrics) ObserveBackend(op string, duration time.Duration) {
	if c == nil || c.backend == nil {
		return
	}
	c.backend.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncResync counts a wholesale inventory resync.
func (c *CartMetrics) IncResync() {
	if c == nil || c.resyncs == nil {
		return
	}
	c.resyncs.Inc()
}

// SetSessions reports the live session count.
func (c *CartMetrics) SetSessions(n int) {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
