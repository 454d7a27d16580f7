package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementLookup(OutcomeHit)
	m.IncrementLookup(OutcomeHit)
	m.IncrementLookup(OutcomeMiss)
	m.IncrementCacheWriteFailure()
	m.ObserveFetch("ok", 300*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Lookups.WithLabelValues(OutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(OutcomeMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWriteFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchLatency))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncrementLookup(OutcomeError)
		m.ObserveFetch("timeout", time.Second)
		m.IncrementCacheWriteFailure()
	})
}
