// Package metric provides Prometheus metrics for the scan engine and the
// Redis cache/streaming layer.
//
// A MetricsRegistry owns a private prometheus.Registry pre-loaded with the
// core platform metrics (scan phase durations, cache hit ratios, stream
// event counters) plus the Go runtime collectors. Components register
// their own metrics through the MetricsRegistrar interface.
//
// All metric wiring in the module is optional: constructors accept a nil
// registry and then record nothing.
package metric
