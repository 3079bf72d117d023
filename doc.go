// Package blisscore is the scan-execution core of the BLISS beamline
// control framework: an acquisition-chain engine plus a Redis-backed
// settings, cache and streaming layer.
//
// # Architecture
//
// Two loosely coupled engines form the core:
//
// Acquisition chain (package scanning):
//   - A tree of acquisition objects (masters own slaves and sub-masters)
//     built once per scan from controller configuration.
//   - A per-iteration phase protocol: apply-parameters, prepare, start,
//     wait-ready, stop, executed strictly top-down or bottom-up over the
//     tree, with optional parallel prepare across unrelated branches.
//   - Software triggering of slaves by masters, and hardware-triggered
//     slaves that poll their device from a background reading loop.
//
// Redis layer (packages redisclient, settings, streaming):
//   - Typed settings primitives (scalar, hash, queue) over remote keys.
//   - A client-side read-through/write-through cache kept consistent via
//     server push invalidation (CLIENT TRACKING BCAST); degrades to a
//     transparent pass-through when the server cannot track keys.
//   - An append-only stream abstraction with composite "<millis>-<seq>"
//     indices and a priority-ordered, resumable multi-stream reader.
//
// Scan data flows from acquisition channels through a stream publisher
// into Redis streams; external consumers (for example a file writer
// service) read them back in order with a DataStreamReader.
//
// # Scope
//
// blisscore is an in-process library. Device drivers, Tango bindings,
// Nexus/HDF5 writing and other instrument glue live in separate modules
// and consume this core through the counter-controller and settings
// interfaces only.
package blisscore
