package cache

import (
	"sync"
)

// SimpleCache is a thread-safe cache with no eviction policy.
// It stores items until explicitly deleted or cleared.
type SimpleCache[V any] struct {
	mu      sync.RWMutex
	items   map[string]V
	stats   *Statistics
	evictFn EvictCallback[V]
}

// Option configures a SimpleCache.
type Option[V any] func(*SimpleCache[V])

// WithEvictCallback sets a callback invoked for every removed entry.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(c *SimpleCache[V]) {
		c.evictFn = fn
	}
}

// NewSimple creates a new cache with no eviction policy.
func NewSimple[V any](opts ...Option[V]) *SimpleCache[V] {
	c := &SimpleCache[V]{
		items: make(map[string]V),
		stats: NewStatistics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value by key.
func (c *SimpleCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	value, exists := c.items[key]
	c.mu.RUnlock()

	if exists {
		c.stats.Hit()
	} else {
		c.stats.Miss()
	}
	return value, exists
}

// Set stores a value with the given key.
func (c *SimpleCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	_, exists := c.items[key]
	c.items[key] = value
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	return !exists, nil
}

// Delete removes an entry by key.
func (c *SimpleCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	value, exists := c.items[key]
	if exists {
		delete(c.items, key)
		if c.evictFn != nil {
			defer c.evictFn(key, value)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	if exists {
		c.stats.Delete()
		c.stats.UpdateSize(int64(size))
	}
	return exists, nil
}

// Clear removes all entries from the cache.
func (c *SimpleCache[V]) Clear() error {
	c.mu.Lock()
	if c.evictFn != nil {
		for key, value := range c.items {
			c.evictFn(key, value)
		}
	}
	c.items = make(map[string]V)
	c.mu.Unlock()

	c.stats.UpdateSize(0)
	return nil
}

// Size returns the current number of entries in the cache.
func (c *SimpleCache[V]) Size() int {
	c.mu.RLock()
	size := len(c.items)
	c.mu.RUnlock()
	return size
}

// Keys returns a slice of all keys currently in the cache.
func (c *SimpleCache[V]) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.items))
	for key := range c.items {
		keys = append(keys, key)
	}
	c.mu.RUnlock()
	return keys
}

// Stats returns cache statistics.
func (c *SimpleCache[V]) Stats() *Statistics {
	return c.stats
}
