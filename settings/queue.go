package settings

import (
	"context"

	"github.com/esrf-bliss/blisscore/redisclient"
)

// QueueSetting is a typed handle over one Redis list. Index arguments
// follow list semantics: zero-based, negative counts from the end.
type QueueSetting[T any] struct {
	name  string
	conn  redisclient.Commands
	codec Codec[T]
}

// NewQueueSetting creates a queue setting over key name on conn
func NewQueueSetting[T any](name string, conn redisclient.Commands, codec Codec[T]) *QueueSetting[T] {
	return &QueueSetting[T]{name: name, conn: conn, codec: codec}
}

// Name returns the Redis key this setting maps
func (q *QueueSetting[T]) Name() string {
	return q.name
}

// On returns a copy of the setting bound to another command surface
func (q *QueueSetting[T]) On(conn redisclient.Commands) *QueueSetting[T] {
	return &QueueSetting[T]{name: q.name, conn: conn, codec: q.codec}
}

// Get returns the elements between first and last inclusive
func (q *QueueSetting[T]) Get(ctx context.Context, first, last int64) ([]T, error) {
	raw, err := q.conn.LRange(ctx, q.name, first, last)
	if err != nil {
		return nil, err
	}
	return q.decodeAll(raw)
}

// GetAll returns the whole queue
func (q *QueueSetting[T]) GetAll(ctx context.Context) ([]T, error) {
	return q.Get(ctx, 0, -1)
}

// GetItem returns the element at index. found is false when the index
// is out of range.
func (q *QueueSetting[T]) GetItem(ctx context.Context, index int64) (T, bool, error) {
	var zero T
	raw, found, err := q.conn.LIndex(ctx, q.name, index)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := q.codec.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// SetItem overwrites the element at index
func (q *QueueSetting[T]) SetItem(ctx context.Context, index int64, v T) error {
	raw, err := q.codec.Encode(v)
	if err != nil {
		return err
	}
	return q.conn.LSet(ctx, q.name, index, raw)
}

// Append adds a value at the back and returns the new length
func (q *QueueSetting[T]) Append(ctx context.Context, v T) (int64, error) {
	raw, err := q.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	return q.conn.RPush(ctx, q.name, raw)
}

// Prepend adds a value at the front and returns the new length
func (q *QueueSetting[T]) Prepend(ctx context.Context, v T) (int64, error) {
	raw, err := q.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	return q.conn.LPush(ctx, q.name, raw)
}

// Extend appends several values and returns the new length
func (q *QueueSetting[T]) Extend(ctx context.Context, values ...T) (int64, error) {
	if len(values) == 0 {
		return q.Len(ctx)
	}
	raw := make([]string, len(values))
	for i, v := range values {
		s, err := q.codec.Encode(v)
		if err != nil {
			return 0, err
		}
		raw[i] = s
	}
	return q.conn.RPush(ctx, q.name, raw...)
}

// SetAll replaces the whole queue with values
func (q *QueueSetting[T]) SetAll(ctx context.Context, values []T) error {
	if _, err := q.conn.Del(ctx, q.name); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	_, err := q.Extend(ctx, values...)
	return err
}

// Remove deletes the first occurrence of v. removed is false when the
// value was not present.
func (q *QueueSetting[T]) Remove(ctx context.Context, v T) (bool, error) {
	raw, err := q.codec.Encode(v)
	if err != nil {
		return false, err
	}
	n, err := q.conn.LRem(ctx, q.name, 1, raw)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PopFront removes and returns the first element
func (q *QueueSetting[T]) PopFront(ctx context.Context) (T, bool, error) {
	var zero T
	raw, found, err := q.conn.LPop(ctx, q.name)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := q.codec.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// PopBack removes and returns the last element
func (q *QueueSetting[T]) PopBack(ctx context.Context) (T, bool, error) {
	var zero T
	raw, found, err := q.conn.RPop(ctx, q.name)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := q.codec.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Len returns the queue length
func (q *QueueSetting[T]) Len(ctx context.Context) (int64, error) {
	return q.conn.LLen(ctx, q.name)
}

// Clear removes the queue
func (q *QueueSetting[T]) Clear(ctx context.Context) error {
	_, err := q.conn.Del(ctx, q.name)
	return err
}

// PrefetchKeys implements redisclient.Prefetchable
func (q *QueueSetting[T]) PrefetchKeys() []redisclient.PrefetchKey {
	return []redisclient.PrefetchKey{{Name: q.name, Kind: redisclient.KindQueue}}
}

func (q *QueueSetting[T]) decodeAll(raw []string) ([]T, error) {
	out := make([]T, len(raw))
	for i, s := range raw {
		v, err := q.codec.Decode(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
