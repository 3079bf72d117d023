package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core platform metrics.
type Metrics struct {
	// Scan metrics
	ScanPhaseDuration *prometheus.HistogramVec
	ScanPhaseErrors   *prometheus.CounterVec
	ScanIterations    *prometheus.CounterVec

	// Channel / stream metrics
	ChannelEmissions      *prometheus.CounterVec
	StreamEventsPublished prometheus.Counter
	StreamEventsConsumed  prometheus.Counter

	// Client-side cache metrics
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheInvalidations prometheus.Counter

	// Redis connection metrics
	RedisConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ScanPhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blisscore",
				Subsystem: "scan",
				Name:      "phase_duration_seconds",
				Help:      "Duration of one acquisition phase on one device",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"device", "phase"},
		),

		ScanPhaseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "scan",
				Name:      "phase_errors_total",
				Help:      "Total acquisition phase failures",
			},
			[]string{"device", "phase"},
		),

		ScanIterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "scan",
				Name:      "iterations_total",
				Help:      "Total completed chain iterations",
			},
			[]string{"chain"},
		),

		ChannelEmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "channel",
				Name:      "emissions_total",
				Help:      "Total values emitted on acquisition channels",
			},
			[]string{"channel"},
		),

		StreamEventsPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "stream",
				Name:      "events_published_total",
				Help:      "Total events appended to data streams",
			},
		),

		StreamEventsConsumed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "stream",
				Name:      "events_consumed_total",
				Help:      "Total events yielded by stream readers",
			},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total client-side cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total client-side cache misses",
			},
		),

		CacheInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "blisscore",
				Subsystem: "cache",
				Name:      "invalidations_total",
				Help:      "Total keys evicted by server invalidation push",
			},
		),

		RedisConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "blisscore",
				Subsystem: "redis",
				Name:      "connected",
				Help:      "Redis connection status (1=connected)",
			},
		),
	}
}

// RecordPhaseDuration records the duration of one phase on one device
func (c *Metrics) RecordPhaseDuration(device, phase string, duration time.Duration) {
	c.ScanPhaseDuration.WithLabelValues(device, phase).Observe(duration.Seconds())
}

// RecordPhaseError increments the phase failure counter
func (c *Metrics) RecordPhaseError(device, phase string) {
	c.ScanPhaseErrors.WithLabelValues(device, phase).Inc()
}

// RecordIteration increments the completed iteration counter for a chain
func (c *Metrics) RecordIteration(chain string) {
	c.ScanIterations.WithLabelValues(chain).Inc()
}

// RecordChannelEmission increments the emission counter for a channel
func (c *Metrics) RecordChannelEmission(channel string) {
	c.ChannelEmissions.WithLabelValues(channel).Inc()
}

// RecordStreamPublished increments the published stream event counter
func (c *Metrics) RecordStreamPublished() {
	c.StreamEventsPublished.Inc()
}

// RecordStreamConsumed increments the consumed stream event counter
func (c *Metrics) RecordStreamConsumed() {
	c.StreamEventsConsumed.Inc()
}

// RecordCacheHit increments the cache hit counter
func (c *Metrics) RecordCacheHit() {
	c.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter
func (c *Metrics) RecordCacheMiss() {
	c.CacheMisses.Inc()
}

// RecordCacheInvalidation increments the invalidation counter
func (c *Metrics) RecordCacheInvalidation() {
	c.CacheInvalidations.Inc()
}

// RecordRedisStatus updates the Redis connection status gauge
func (c *Metrics) RecordRedisStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.RedisConnected.Set(value)
}
