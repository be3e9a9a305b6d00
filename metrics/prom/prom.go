// Package prom exposes evaluator events as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/rediset"
)

// Hooks implements rediset.Hooks with Prometheus collectors.
type Hooks struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	materialized *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec
	usageErrors  *prometheus.CounterVec
}

var _ rediset.Hooks = (*Hooks)(nil)

// New creates the collectors under namespace and registers them with reg.
// Register once per process (or per registry); a duplicate registration
// returns an error.
func New(namespace string, reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Operation nodes served from a live cached result",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Operation nodes without a live cached result",
		}),
		materialized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materializations_total",
			Help:      "Operation results computed and stored",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "materialization_duration_seconds",
			Help:      "Duration of store-side operation-and-store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed store round-trips",
		}, []string{"stage"}),
		usageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_errors_total",
			Help:      "Calls rejected as invalid usage",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{
		h.hits, h.misses, h.materialized, h.duration, h.storeErrors, h.usageErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) CacheHit(string)  { h.hits.Inc() }
func (h *Hooks) CacheMiss(string) { h.misses.Inc() }

func (h *Hooks) Materialized(_, op string, _, took time.Duration) {
	h.materialized.WithLabelValues(op).Inc()
	h.duration.WithLabelValues(op).Observe(took.Seconds())
}

func (h *Hooks) StoreError(stage, _ string, _ error) {
	h.storeErrors.WithLabelValues(stage).Inc()
}

func (h *Hooks) UsageRejected(op, _ string) {
	h.usageErrors.WithLabelValues(op).Inc()
}
