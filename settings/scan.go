package settings

import (
	"context"
	"time"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/redisclient"
)

// ScanNames iterates the keyspace and returns the setting names
// matching the glob pattern.
func ScanNames(ctx context.Context, client *redisclient.Client, match string) ([]string, error) {
	var names []string
	iter := client.Raw().Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.WrapTransient(err, "settings", "ScanNames", match)
	}
	return names, nil
}

func secondsDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
