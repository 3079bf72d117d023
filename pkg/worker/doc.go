// Package worker provides a generic worker pool for concurrent task
// processing.
//
// The scan engine uses it to decouple acquisition-channel emissions from
// Redis stream appends: slave reading loops submit publish jobs and keep
// polling their device while the pool performs the round trips.
//
// Lifecycle: NewPool -> Start(ctx) -> Submit(work)... -> Stop(timeout).
// Submit is non-blocking; work is dropped with ErrQueueFull when the
// queue is at capacity.
package worker
