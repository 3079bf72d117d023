package redisclient

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/esrf-bliss/blisscore/errors"
)

// Commands is the command surface shared by Client and CacheConnection.
// Settings objects are written against this interface so that a plain
// connection and a caching connection are interchangeable.
//
// Single-key reads report a missing key with found=false rather than an
// error; callers decide whether absence is exceptional.
type Commands interface {
	// String keys
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetEx(ctx context.Context, key, value string, ttlSeconds int64) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)

	// Hashes
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key, field, value string) error
	HMSet(ctx context.Context, key string, fields map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
	HLen(ctx context.Context, key string) (int64, error)
	HExists(ctx context.Context, key, field string) (bool, error)
	HScan(ctx context.Context, key string, cursor uint64, match string, count int64) ([]string, uint64, error)

	// Lists
	LIndex(ctx context.Context, key string, index int64) (string, bool, error)
	LLen(ctx context.Context, key string) (int64, error)
	LPush(ctx context.Context, key string, values ...string) (int64, error)
	RPush(ctx context.Context, key string, values ...string) (int64, error)
	LPop(ctx context.Context, key string) (string, bool, error)
	RPop(ctx context.Context, key string) (string, bool, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LSet(ctx context.Context, key string, index int64, value string) error
	LRem(ctx context.Context, key string, count int64, value string) (int64, error)

	// Sorted sets
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// stringResult translates the redis.Nil sentinel into found=false
func stringResult(val string, err error) (string, bool, error) {
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Get returns the value of a string key
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, found, err := stringResult(c.rdb.Get(ctx, key).Result())
	if err != nil {
		return "", false, errors.WrapTransient(err, "Client", "Get", key)
	}
	return val, found, nil
}

// Set writes a string key
func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.WrapTransient(err, "Client", "Set", key)
	}
	return nil
}

// SetEx writes a string key with a time-to-live in seconds
func (c *Client) SetEx(ctx context.Context, key, value string, ttlSeconds int64) error {
	if err := c.rdb.SetEx(ctx, key, value, secDuration(ttlSeconds)).Err(); err != nil {
		return errors.WrapTransient(err, "Client", "SetEx", key)
	}
	return nil
}

// Del removes keys and returns the number removed
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "Del", "keys")
	}
	return n, nil
}

// Exists reports whether a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.WrapTransient(err, "Client", "Exists", key)
	}
	return n > 0, nil
}

// IncrBy atomically adds delta to an integer key
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := c.rdb.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "IncrBy", key)
	}
	return n, nil
}

// IncrByFloat atomically adds delta to a float key
func (c *Client) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	n, err := c.rdb.IncrByFloat(ctx, key, delta).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "IncrByFloat", key)
	}
	return n, nil
}

// HGet returns one field of a hash
func (c *Client) HGet(ctx context.Context, key, field string) (string, bool, error) {
	val, found, err := stringResult(c.rdb.HGet(ctx, key, field).Result())
	if err != nil {
		return "", false, errors.WrapTransient(err, "Client", "HGet", key)
	}
	return val, found, nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "HGetAll", key)
	}
	return m, nil
}

// HSet writes one field of a hash
func (c *Client) HSet(ctx context.Context, key, field, value string) error {
	if err := c.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return errors.WrapTransient(err, "Client", "HSet", key)
	}
	return nil
}

// HMSet writes several fields of a hash in one round trip
func (c *Client) HMSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	if err := c.rdb.HSet(ctx, key, args...).Err(); err != nil {
		return errors.WrapTransient(err, "Client", "HMSet", key)
	}
	return nil
}

// HDel removes fields from a hash
func (c *Client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	n, err := c.rdb.HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "HDel", key)
	}
	return n, nil
}

// HLen returns the number of fields in a hash
func (c *Client) HLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.HLen(ctx, key).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "HLen", key)
	}
	return n, nil
}

// HExists reports whether a hash field exists
func (c *Client) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := c.rdb.HExists(ctx, key, field).Result()
	if err != nil {
		return false, errors.WrapTransient(err, "Client", "HExists", key)
	}
	return ok, nil
}

// HScan iterates a hash incrementally. The returned slice alternates
// field and value; a zero next-cursor means the scan is complete.
func (c *Client) HScan(ctx context.Context, key string, cursor uint64, match string, count int64) ([]string, uint64, error) {
	pairs, next, err := c.rdb.HScan(ctx, key, cursor, match, count).Result()
	if err != nil {
		return nil, 0, errors.WrapTransient(err, "Client", "HScan", key)
	}
	return pairs, next, nil
}

// LIndex returns the element at index of a list
func (c *Client) LIndex(ctx context.Context, key string, index int64) (string, bool, error) {
	val, found, err := stringResult(c.rdb.LIndex(ctx, key, index).Result())
	if err != nil {
		return "", false, errors.WrapTransient(err, "Client", "LIndex", key)
	}
	return val, found, nil
}

// LLen returns the length of a list
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "LLen", key)
	}
	return n, nil
}

// LPush prepends values to a list
func (c *Client) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	n, err := c.rdb.LPush(ctx, key, toAny(values)...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "LPush", key)
	}
	return n, nil
}

// RPush appends values to a list
func (c *Client) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	n, err := c.rdb.RPush(ctx, key, toAny(values)...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "RPush", key)
	}
	return n, nil
}

// LPop removes and returns the first element of a list
func (c *Client) LPop(ctx context.Context, key string) (string, bool, error) {
	val, found, err := stringResult(c.rdb.LPop(ctx, key).Result())
	if err != nil {
		return "", false, errors.WrapTransient(err, "Client", "LPop", key)
	}
	return val, found, nil
}

// RPop removes and returns the last element of a list
func (c *Client) RPop(ctx context.Context, key string) (string, bool, error) {
	val, found, err := stringResult(c.rdb.RPop(ctx, key).Result())
	if err != nil {
		return "", false, errors.WrapTransient(err, "Client", "RPop", key)
	}
	return val, found, nil
}

// LRange returns the elements of a list between start and stop inclusive
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "LRange", key)
	}
	return vals, nil
}

// LSet overwrites the element at index of a list
func (c *Client) LSet(ctx context.Context, key string, index int64, value string) error {
	if err := c.rdb.LSet(ctx, key, index, value).Err(); err != nil {
		return errors.WrapTransient(err, "Client", "LSet", key)
	}
	return nil
}

// LRem removes count occurrences of value from a list
func (c *Client) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	n, err := c.rdb.LRem(ctx, key, count, value).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "LRem", key)
	}
	return n, nil
}

// ZRange returns the members of a sorted set between rank start and stop
func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.rdb.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "ZRange", key)
	}
	return vals, nil
}

func secDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
