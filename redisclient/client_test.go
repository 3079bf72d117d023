package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bcerrors "github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/pkg/retry"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr(),
		WithDialTimeout(time.Second),
		WithRetryConfig(retry.Quick()),
	)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestClient_ConnectAndStatus(t *testing.T) {
	_, c := newTestClient(t)
	assert.Equal(t, StatusConnected, c.Status())

	require.NoError(t, c.Close())
	assert.Equal(t, StatusClosed, c.Status())

	// Closing twice is a no-op
	require.NoError(t, c.Close())
}

func TestClient_ConnectFailure(t *testing.T) {
	c, err := NewClient("127.0.0.1:1",
		WithDialTimeout(100*time.Millisecond),
		WithRetryConfig(retry.Config{MaxAttempts: 1, InitialDelay: time.Millisecond}),
	)
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, bcerrors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestClient_StringCommands(t *testing.T) {
	ctx := context.Background()
	_, c := newTestClient(t)

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", "v"))
	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := c.Del(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	exists, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_IncrBy(t *testing.T) {
	ctx := context.Background()
	_, c := newTestClient(t)

	n, err := c.IncrBy(ctx, "counter", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.IncrBy(ctx, "counter", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	f, err := c.IncrByFloat(ctx, "ratio", 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-9)
}

func TestClient_HashCommands(t *testing.T) {
	ctx := context.Background()
	_, c := newTestClient(t)

	require.NoError(t, c.HSet(ctx, "h", "a", "1"))
	require.NoError(t, c.HMSet(ctx, "h", map[string]string{"b": "2", "c": "3"}))

	val, found, err := c.HGet(ctx, "h", "b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2", val)

	_, found, err = c.HGet(ctx, "h", "nope")
	require.NoError(t, err)
	assert.False(t, found)

	all, err := c.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, all)

	n, err := c.HLen(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := c.HExists(ctx, "h", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := c.HDel(ctx, "h", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	all, err = c.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c": "3"}, all)
}

func TestClient_HScan(t *testing.T) {
	ctx := context.Background()
	_, c := newTestClient(t)

	want := map[string]string{}
	fields := map[string]string{}
	for _, f := range []string{"x", "y", "z"} {
		fields[f] = f + "-val"
		want[f] = f + "-val"
	}
	require.NoError(t, c.HMSet(ctx, "h", fields))

	got := map[string]string{}
	var cursor uint64
	for {
		pairs, next, err := c.HScan(ctx, "h", cursor, "", 2)
		require.NoError(t, err)
		for i := 0; i+1 < len(pairs); i += 2 {
			got[pairs[i]] = pairs[i+1]
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	assert.Equal(t, want, got)
}

func TestClient_ListCommands(t *testing.T) {
	ctx := context.Background()
	_, c := newTestClient(t)

	n, err := c.RPush(ctx, "q", "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.LPush(ctx, "q", "front")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	vals, err := c.LRange(ctx, "q", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"front", "a", "b", "c"}, vals)

	val, found, err := c.LIndex(ctx, "q", -1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "c", val)

	require.NoError(t, c.LSet(ctx, "q", 1, "A"))

	val, found, err = c.LPop(ctx, "q")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "front", val)

	val, found, err = c.RPop(ctx, "q")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "c", val)

	removed, err := c.LRem(ctx, "q", 1, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	length, err := c.LLen(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	_, found, err = c.LPop(ctx, "empty")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_RunScript(t *testing.T) {
	ctx := context.Background()
	_, c := newTestClient(t)

	c.RegisterScript("answer", "return 42")
	res, err := c.RunScript(ctx, "answer", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 42, res)

	_, err = c.RunScript(ctx, "unknown", nil)
	require.Error(t, err)
	assert.True(t, bcerrors.IsInvalid(err))
}
