package redisclient

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/esrf-bliss/blisscore/errors"
)

// ClientFactory builds a connected-capable Client for one database
// index. The registry calls Connect on the result.
type ClientFactory func(db int) (*Client, error)

// CacheRegistry hands out one shared CacheConnection per database
// index. All callers asking for the same index share one mirror and one
// invalidation listener. The registry is an explicit dependency meant
// to be constructed once and passed around.
type CacheRegistry struct {
	factory ClientFactory

	conns *xsync.MapOf[int, *CacheConnection]

	// mu serializes connection creation so only one caller pays the
	// connect plus handshake cost per index
	mu sync.Mutex
}

// NewCacheRegistry creates a registry that builds clients with factory
func NewCacheRegistry(factory ClientFactory) *CacheRegistry {
	return &CacheRegistry{
		factory: factory,
		conns:   xsync.NewMapOf[int, *CacheConnection](),
	}
}

// Get returns the shared caching connection for a database index,
// creating and connecting it on first use.
func (r *CacheRegistry) Get(ctx context.Context, db int) (*CacheConnection, error) {
	if cc, ok := r.conns.Load(db); ok {
		return cc, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cc, ok := r.conns.Load(db); ok {
		return cc, nil
	}

	client, err := r.factory(db)
	if err != nil {
		return nil, errors.Wrap(err, "CacheRegistry", "Get", "build client")
	}
	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	cc := NewCacheConnection(client)
	r.conns.Store(db, cc)
	return cc, nil
}

// CloseAll tears down every connection in the registry
func (r *CacheRegistry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	r.conns.Range(func(db int, cc *CacheConnection) bool {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := cc.Client().Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.conns.Delete(db)
		return true
	})
	return firstErr
}
