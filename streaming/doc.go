// Package streaming turns Redis streams into ordered, resumable event
// logs and provides a priority-ordered multiplexing reader over them.
//
// A DataStream is one append-only log whose entry indices are composite
// "<millis>-<seq>" strings, monotonic per stream. DataStreamReader
// batch-reads any number of streams for a single consumer, serving
// lower priority numbers first and starving the rest while higher
// priority streams have backlog. Streams can be added and removed while
// the consumer runs.
package streaming
