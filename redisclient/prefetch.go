package redisclient

import "sync"

// Kind identifies the Redis data type behind a cached key
type Kind int

// Key kinds understood by the cache fill path
const (
	KindKey Kind = iota
	KindHash
	KindQueue
	KindZSet
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindHash:
		return "hash"
	case KindQueue:
		return "queue"
	case KindZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// PrefetchKey names one remote key and its data type
type PrefetchKey struct {
	Name string
	Kind Kind
}

// Prefetchable is implemented by objects whose backing keys should stay
// warm in the cache mirror. Composite objects report every constituent
// key.
type Prefetchable interface {
	PrefetchKeys() []PrefetchKey
}

// PrefetchHandle represents one prefetch registration. Callers must
// call Release when the registering object goes out of use so the
// mirror does not grow without bound.
type PrefetchHandle struct {
	conn *CacheConnection
	keys []PrefetchKey

	once sync.Once
}

// Release drops this registration. Keys with no remaining registrations
// are purged from the mirror. Safe to call more than once.
func (h *PrefetchHandle) Release() {
	h.once.Do(func() {
		h.conn.removePrefetch(h.keys)
	})
}
