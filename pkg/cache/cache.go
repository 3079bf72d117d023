package cache

import (
	"strings"

	"github.com/esrf-bliss/blisscore/errors"
)

// Cache represents a generic cache interface parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found,
	// zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry
	// was created, false if an existing one was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries.
	Size() int

	// Keys returns all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics
}

// EvictCallback is called when an entry is removed from the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey rejects keys that cannot be Redis keys.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidValue, "cache", "validateKey", "empty key")
	}
	if strings.ContainsRune(key, '\x00') {
		return errors.WrapInvalid(errors.ErrInvalidValue, "cache", "validateKey", "key contains NUL")
	}
	return nil
}
