package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry_CoreMetricsRegistered(t *testing.T) {
	r := NewMetricsRegistry()
	require.NotNil(t, r.CoreMetrics())

	r.Metrics.RecordCacheHit()
	r.Metrics.RecordCacheMiss()
	r.Metrics.RecordCacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.CacheMisses))
}

func TestMetrics_Recorders(t *testing.T) {
	r := NewMetricsRegistry()
	m := r.CoreMetrics()

	m.RecordPhaseDuration("timer", "prepare", 10*time.Millisecond)
	m.RecordPhaseError("timer", "start")
	m.RecordIteration("ascan")
	m.RecordChannelEmission("elapsed_time")
	m.RecordStreamPublished()
	m.RecordStreamConsumed()
	m.RecordRedisStatus(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanPhaseErrors.WithLabelValues("timer", "start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanIterations.WithLabelValues("ascan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RedisConnected))

	m.RecordRedisStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RedisConnected))
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewMetricsRegistry()

	c1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_a"})
	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_b"})

	require.NoError(t, r.RegisterCounter("svc", "c", c1))
	assert.Error(t, r.RegisterCounter("svc", "c", c2))
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewMetricsRegistry()

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter"})
	require.NoError(t, r.RegisterCounter("svc", "c", c))

	assert.True(t, r.Unregister("svc", "c"))
	assert.False(t, r.Unregister("svc", "c"))

	// Re-registration after unregister must succeed.
	require.NoError(t, r.RegisterCounter("svc", "c", c))
}
