package settings

import (
	"context"
	"time"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/redisclient"
)

// SimpleSetting is a typed handle over one scalar Redis key
type SimpleSetting[T any] struct {
	name  string
	conn  redisclient.Commands
	codec Codec[T]
}

// NewSimpleSetting creates a setting over key name on conn
func NewSimpleSetting[T any](name string, conn redisclient.Commands, codec Codec[T]) *SimpleSetting[T] {
	return &SimpleSetting[T]{name: name, conn: conn, codec: codec}
}

// Name returns the Redis key this setting maps
func (s *SimpleSetting[T]) Name() string {
	return s.name
}

// On returns a copy of the setting bound to another command surface.
// Used to route writes through a settings Pipeline.
func (s *SimpleSetting[T]) On(conn redisclient.Commands) *SimpleSetting[T] {
	return &SimpleSetting[T]{name: s.name, conn: conn, codec: s.codec}
}

// Get reads the value. found is false when the key does not exist.
func (s *SimpleSetting[T]) Get(ctx context.Context) (T, bool, error) {
	var zero T
	raw, found, err := s.conn.Get(ctx, s.name)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// GetDefault reads the value, returning def when the key does not exist
func (s *SimpleSetting[T]) GetDefault(ctx context.Context, def T) (T, error) {
	v, found, err := s.Get(ctx)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// Set writes the value
func (s *SimpleSetting[T]) Set(ctx context.Context, v T) error {
	raw, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	return s.conn.Set(ctx, s.name, raw)
}

// SetWithTTL writes the value with an expiry. The TTL is rounded up to
// whole seconds.
func (s *SimpleSetting[T]) SetWithTTL(ctx context.Context, v T, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidValue, "SimpleSetting", "SetWithTTL", "non-positive ttl")
	}
	raw, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	seconds := int64((ttl + time.Second - 1) / time.Second)
	return s.conn.SetEx(ctx, s.name, raw, seconds)
}

// Clear removes the key
func (s *SimpleSetting[T]) Clear(ctx context.Context) error {
	_, err := s.conn.Del(ctx, s.name)
	return err
}

// Exists reports whether the key is set
func (s *SimpleSetting[T]) Exists(ctx context.Context) (bool, error) {
	return s.conn.Exists(ctx, s.name)
}

// PrefetchKeys implements redisclient.Prefetchable
func (s *SimpleSetting[T]) PrefetchKeys() []redisclient.PrefetchKey {
	return []redisclient.PrefetchKey{{Name: s.name, Kind: redisclient.KindKey}}
}

// CounterSetting is a SimpleSetting over an integer key with atomic
// increment. Increment bypasses the codec; the server guarantees the
// stored form stays a decimal integer.
type CounterSetting struct {
	*SimpleSetting[int64]
}

// NewCounterSetting creates an integer setting with atomic increment
func NewCounterSetting(name string, conn redisclient.Commands) *CounterSetting {
	return &CounterSetting{NewSimpleSetting[int64](name, conn, IntCodec{})}
}

// IncrBy atomically adds delta and returns the new value
func (c *CounterSetting) IncrBy(ctx context.Context, delta int64) (int64, error) {
	return c.conn.IncrBy(ctx, c.name, delta)
}
