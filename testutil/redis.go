package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/esrf-bliss/blisscore/pkg/retry"
	"github.com/esrf-bliss/blisscore/redisclient"
)

// NewRedis starts an in-process Redis server and returns it together
// with a connected client. Both are shut down when the test finishes.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redisclient.Client) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := redisclient.NewClient(mr.Addr(),
		redisclient.WithDialTimeout(time.Second),
		redisclient.WithRetryConfig(retry.Quick()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	t.Cleanup(func() {
		_ = client.Close()
	})
	return mr, client
}
