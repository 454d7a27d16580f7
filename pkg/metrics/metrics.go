package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes.
const (
	OutcomeHit   = "cache_hit"
	OutcomeMiss  = "cache_miss"
	OutcomeError = "error"
)

// Metrics provides observability for identity lookups.
type Metrics struct {
	// Lookups by outcome
	Lookups *prometheus.CounterVec

	// Upstream registry latency by category, "ok" on success
	FetchLatency *prometheus.HistogramVec

	CacheWriteFailures prometheus.Counter
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saime_lookups_total",
			Help: "Total identity lookups by outcome",
		}, []string{"outcome"}),

		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saime_upstream_fetch_duration_seconds",
			Help:    "Duration of registry requests by result",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"result"}),

		CacheWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "saime_cache_write_failures_total",
			Help: "Total cache writes that failed and were dropped",
		}),
	}
}

// IncrementLookup records a lookup outcome.
func (m *Metrics) IncrementLookup(outcome string) {
	if m != nil {
		m.Lookups.WithLabelValues(outcome).Inc()
	}
}

// ObserveFetch records the duration of a registry request.
func (m *Metrics) ObserveFetch(result string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(result).Observe(d.Seconds())
	}
}

// IncrementCacheWriteFailure records a dropped cache write.
func (m *Metrics) IncrementCacheWriteFailure() {
	if m != nil {
		m.CacheWriteFailures.Inc()
	}
}
