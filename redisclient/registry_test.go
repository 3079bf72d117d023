package redisclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bcerrors "github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/pkg/retry"
)

func newTestRegistry(t *testing.T) (*miniredis.Miniredis, *CacheRegistry) {
	t.Helper()

	mr := miniredis.RunT(t)
	reg := NewCacheRegistry(func(db int) (*Client, error) {
		return NewClient(mr.Addr(),
			WithDB(db),
			WithDialTimeout(time.Second),
			WithRetryConfig(retry.Quick()),
		)
	})
	t.Cleanup(func() { _ = reg.CloseAll() })
	return mr, reg
}

func TestCacheRegistry_OneConnectionPerDB(t *testing.T) {
	ctx := context.Background()
	_, reg := newTestRegistry(t)

	a, err := reg.Get(ctx, 0)
	require.NoError(t, err)
	b, err := reg.Get(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := reg.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 1, c.Client().DB())
}

func TestCacheRegistry_ConcurrentGet(t *testing.T) {
	ctx := context.Background()
	_, reg := newTestRegistry(t)

	const callers = 8
	conns := make([]*CacheConnection, callers)
	var wg sync.WaitGroup
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cc, err := reg.Get(ctx, 0)
			assert.NoError(t, err)
			conns[i] = cc
		}(i)
	}
	wg.Wait()

	for _, cc := range conns[1:] {
		assert.Same(t, conns[0], cc)
	}
}

func TestCacheRegistry_CloseAllAllowsRebuild(t *testing.T) {
	ctx := context.Background()
	_, reg := newTestRegistry(t)

	a, err := reg.Get(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, reg.CloseAll())

	b, err := reg.Get(ctx, 0)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestCacheRegistry_FactoryError(t *testing.T) {
	reg := NewCacheRegistry(func(int) (*Client, error) {
		return nil, bcerrors.ErrInvalidConfig
	})

	_, err := reg.Get(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, bcerrors.ErrInvalidConfig)
}
