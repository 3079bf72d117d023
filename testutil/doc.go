// Package testutil provides testing utilities for blisscore integration
// tests.
//
// NewRedis starts an in-process Redis server (miniredis) and returns a
// connected client; both are torn down with t.Cleanup. NewLogger builds
// a slog logger writing human-readable output to the test log.
//
// No external Redis server is required.
package testutil
