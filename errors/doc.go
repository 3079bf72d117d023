// Package errors provides standardized error handling patterns for blisscore.
//
// # Overview
//
// The package implements a three-class error classification system for the
// scan engine and the Redis cache/streaming layer: Transient (temporary,
// retryable), Invalid (bad input or misconfiguration, non-retryable), and
// Fatal (broken invariant, abort the enclosing scan).
//
// The classification maps the core's propagation policy onto Go errors:
// recoverable conditions (empty poll, convertor miss, unsupported server
// feature) are absorbed or degrade gracefully, while broken invariants
// propagate to the caller and abort the scan iteration.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if s.readingAlive() {
//	    return errors.ErrReadingActive
//	}
//
// Wrap errors with component context when crossing package boundaries:
//
//	if err := cnx.HSet(ctx, key, field, value); err != nil {
//	    return errors.WrapTransient(err, "HashSetting", "Set", "remote write")
//	}
//
// The system integrates with errors.Is(), errors.As() and wrapping chains.
package errors
