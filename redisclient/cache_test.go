package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bcerrors "github.com/esrf-bliss/blisscore/errors"
)

// fakeInvalidator stands in for the tracking handshake so the enabled
// cache path can be exercised against a server without tracking
// support.
type fakeInvalidator struct {
	rdb      redis.Cmdable
	ch       chan []string
	openErr  error
	closedCh bool
}

func (f *fakeInvalidator) open(_ context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.ch = make(chan []string, 16)
	return nil
}

func (f *fakeInvalidator) invalidations() <-chan []string { return f.ch }

func (f *fakeInvalidator) writer() redis.Cmdable { return f.rdb }

func (f *fakeInvalidator) close() error {
	if !f.closedCh {
		f.closedCh = true
		close(f.ch)
	}
	return nil
}

func newCachedConn(t *testing.T) (*miniredis.Miniredis, *CacheConnection, *fakeInvalidator) {
	t.Helper()
	mr, client := newTestClient(t)
	f := &fakeInvalidator{rdb: client.rdb}
	cc := newCacheConnection(client, f)
	t.Cleanup(func() { _ = cc.Close() })
	return mr, cc, f
}

type staticPrefetch []PrefetchKey

func (s staticPrefetch) PrefetchKeys() []PrefetchKey { return s }

func TestCacheConnection_PassThroughWhenTrackingUnsupported(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	// The real handshake fails against a server without CLIENT
	// TRACKING; the connection must degrade to a working pass-through.
	cc := NewCacheConnection(client)
	t.Cleanup(func() { _ = cc.Close() })

	require.NoError(t, cc.Set(ctx, "k", "v"))
	val, found, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)

	assert.Equal(t, CacheDisabled, cc.State())
	assert.Equal(t, 0, cc.MirrorSize())
}

func TestCacheConnection_OpenFailureIsPermanent(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	f := &fakeInvalidator{rdb: client.rdb, openErr: bcerrors.ErrNoConnection}
	cc := newCacheConnection(client, f)

	require.NoError(t, cc.Set(ctx, "k", "v"))
	assert.Equal(t, CacheDisabled, cc.State())

	// Clearing the injected error must not revive caching
	f.openErr = nil
	_, _, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, CacheDisabled, cc.State())
	assert.Equal(t, 0, cc.MirrorSize())
}

func TestCacheConnection_ReadThroughServesMirror(t *testing.T) {
	ctx := context.Background()
	mr, cc, _ := newCachedConn(t)

	mr.Set("k", "remote")

	val, found, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "remote", val)
	assert.Equal(t, CacheEnabled, cc.State())
	assert.Equal(t, 1, cc.MirrorSize())

	// A remote change without an invalidation push is not observed
	mr.Set("k", "changed")
	val, _, err = cc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", val)
}

func TestCacheConnection_InvalidationEvictsKey(t *testing.T) {
	ctx := context.Background()
	mr, cc, f := newCachedConn(t)

	mr.Set("k", "old")
	_, _, err := cc.Get(ctx, "k")
	require.NoError(t, err)

	mr.Set("k", "new")
	f.ch <- []string{"k"}

	require.Eventually(t, func() bool {
		val, _, err := cc.Get(ctx, "k")
		return err == nil && val == "new"
	}, time.Second, 5*time.Millisecond)
}

func TestCacheConnection_WriteThrough(t *testing.T) {
	ctx := context.Background()
	mr, cc, _ := newCachedConn(t)

	require.NoError(t, cc.Set(ctx, "k", "v"))
	remote, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", remote)

	// Deleting the key behind the cache's back proves the read is
	// served from the mirror, not the server
	mr.Del("k")
	val, found, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)
}

func TestCacheConnection_DelMirrorsAbsence(t *testing.T) {
	ctx := context.Background()
	_, cc, _ := newCachedConn(t)

	require.NoError(t, cc.Set(ctx, "k", "v"))
	n, err := cc.Del(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, found, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := cc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCacheConnection_PrefetchBatchFill(t *testing.T) {
	ctx := context.Background()
	mr, cc, _ := newCachedConn(t)

	mr.Set("warm:key", "w")
	mr.HSet("warm:hash", "f", "1")
	mr.Set("cold", "c")

	handle := cc.AddPrefetch(staticPrefetch{
		{Name: "warm:key", Kind: KindKey},
		{Name: "warm:hash", Kind: KindHash},
	})

	// One miss pays for the missed key plus every prefetch key
	_, _, err := cc.Get(ctx, "cold")
	require.NoError(t, err)
	assert.Equal(t, 3, cc.MirrorSize())

	// Release purges the prefetched values
	handle.Release()
	assert.Equal(t, 1, cc.MirrorSize())

	// Releasing twice is a no-op
	handle.Release()
	assert.Equal(t, 1, cc.MirrorSize())
}

func TestCacheConnection_HashOps(t *testing.T) {
	ctx := context.Background()
	mr, cc, _ := newCachedConn(t)

	require.NoError(t, cc.HMSet(ctx, "h", map[string]string{"a": "1", "b": "2"}))

	all, err := cc.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)

	// The resident entry tracks writes made through this connection
	require.NoError(t, cc.HSet(ctx, "h", "c", "3"))
	mr.Del("h")

	all, err = cc.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, all)

	n, err := cc.HLen(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := cc.HExists(ctx, "h", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = cc.HDel(ctx, "h", "a")
	require.NoError(t, err)
	_, found, err := cc.HGet(ctx, "h", "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheConnection_HScanCursorSemantics(t *testing.T) {
	ctx := context.Background()
	_, cc, _ := newCachedConn(t)

	fields := map[string]string{}
	for _, f := range []string{"a", "b", "c", "d", "e"} {
		fields[f] = f
	}
	require.NoError(t, cc.HMSet(ctx, "h", fields))

	// Warm the mirror so the scan runs over the cached hash
	_, err := cc.HGetAll(ctx, "h")
	require.NoError(t, err)

	// Paged iteration terminates when the cursor returns to 0
	got := map[string]string{}
	var cursor uint64
	pages := 0
	for {
		pairs, next, err := cc.HScan(ctx, "h", cursor, "", 2)
		require.NoError(t, err)
		for i := 0; i+1 < len(pairs); i += 2 {
			got[pairs[i]] = pairs[i+1]
		}
		pages++
		if next == 0 {
			break
		}
		cursor = next
	}
	assert.Equal(t, fields, got)
	assert.Equal(t, 3, pages)

	// An oversize page returns the full remainder and a terminal cursor
	pairs, next, err := cc.HScan(ctx, "h", 0, "", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), next)
	assert.Len(t, pairs, 10)

	// Pattern matching filters fields
	pairs, next, err = cc.HScan(ctx, "h", 0, "a", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), next)
	assert.Equal(t, []string{"a", "a"}, pairs)
}

func TestCacheConnection_ListOps(t *testing.T) {
	ctx := context.Background()
	mr, cc, _ := newCachedConn(t)

	_, err := cc.RPush(ctx, "q", "a", "b", "c")
	require.NoError(t, err)
	_, err = cc.LPush(ctx, "q", "z", "y")
	require.NoError(t, err)

	// Warm the mirror, then verify reads survive a remote wipe
	vals, err := cc.LRange(ctx, "q", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z", "a", "b", "c"}, vals)

	mr.Del("q")

	val, found, err := cc.LIndex(ctx, "q", 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", val)

	n, err := cc.LLen(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	vals, err = cc.LRange(ctx, "q", 1, -2)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "b"}, vals)
}

func TestCacheConnection_ListenerExitDropsMirror(t *testing.T) {
	ctx := context.Background()
	mr, cc, f := newCachedConn(t)

	mr.Set("k", "v")
	_, _, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 1, cc.MirrorSize())

	// Listener termination clears the mirror and requires a re-open
	require.NoError(t, f.close())
	require.Eventually(t, func() bool {
		return cc.MirrorSize() == 0 && cc.State() == CacheUninitialized
	}, time.Second, 5*time.Millisecond)
}

func TestCacheConnection_PipelineDropsMirror(t *testing.T) {
	ctx := context.Background()
	mr, cc, _ := newCachedConn(t)

	mr.Set("k", "v")
	_, _, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 1, cc.MirrorSize())

	pipe := cc.Pipeline()
	pipe.Set(ctx, "k", "other", 0)
	_, err = pipe.Exec(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, cc.MirrorSize())
	val, _, err := cc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "other", val)
}
