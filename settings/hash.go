package settings

import (
	"context"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/redisclient"
)

// HashSetting is a typed handle over one Redis hash. Field names are
// plain strings; the codec applies to values only.
type HashSetting[V any] struct {
	name  string
	conn  redisclient.Commands
	codec Codec[V]
}

// NewHashSetting creates a hash setting over key name on conn
func NewHashSetting[V any](name string, conn redisclient.Commands, codec Codec[V]) *HashSetting[V] {
	return &HashSetting[V]{name: name, conn: conn, codec: codec}
}

// Name returns the Redis key this setting maps
func (h *HashSetting[V]) Name() string {
	return h.name
}

// On returns a copy of the setting bound to another command surface
func (h *HashSetting[V]) On(conn redisclient.Commands) *HashSetting[V] {
	return &HashSetting[V]{name: h.name, conn: conn, codec: h.codec}
}

// Get reads one field. A missing field is an ErrKeyNotFound error;
// use GetDefault when absence is expected.
func (h *HashSetting[V]) Get(ctx context.Context, field string) (V, error) {
	var zero V
	raw, found, err := h.conn.HGet(ctx, h.name, field)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, errors.WrapInvalid(errors.ErrKeyNotFound, "HashSetting", "Get", field)
	}
	return h.codec.Decode(raw)
}

// GetDefault reads one field, returning def when it does not exist
func (h *HashSetting[V]) GetDefault(ctx context.Context, field string, def V) (V, error) {
	raw, found, err := h.conn.HGet(ctx, h.name, field)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return h.codec.Decode(raw)
}

// GetAll reads the whole hash. A missing key yields an empty map.
func (h *HashSetting[V]) GetAll(ctx context.Context) (map[string]V, error) {
	raw, err := h.conn.HGetAll(ctx, h.name)
	if err != nil {
		return nil, err
	}
	out := make(map[string]V, len(raw))
	for field, s := range raw {
		v, err := h.codec.Decode(s)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

// Set writes one field
func (h *HashSetting[V]) Set(ctx context.Context, field string, v V) error {
	raw, err := h.codec.Encode(v)
	if err != nil {
		return err
	}
	return h.conn.HSet(ctx, h.name, field, raw)
}

// SetAll replaces the whole hash with values
func (h *HashSetting[V]) SetAll(ctx context.Context, values map[string]V) error {
	if _, err := h.conn.Del(ctx, h.name); err != nil {
		return err
	}
	return h.Update(ctx, values)
}

// Update merges values into the hash, leaving other fields untouched
func (h *HashSetting[V]) Update(ctx context.Context, values map[string]V) error {
	if len(values) == 0 {
		return nil
	}
	raw := make(map[string]string, len(values))
	for field, v := range values {
		s, err := h.codec.Encode(v)
		if err != nil {
			return err
		}
		raw[field] = s
	}
	return h.conn.HMSet(ctx, h.name, raw)
}

// Remove deletes fields
func (h *HashSetting[V]) Remove(ctx context.Context, fields ...string) error {
	_, err := h.conn.HDel(ctx, h.name, fields...)
	return err
}

// Pop reads and deletes one field. found is false when it did not
// exist.
func (h *HashSetting[V]) Pop(ctx context.Context, field string) (V, bool, error) {
	var zero V
	raw, found, err := h.conn.HGet(ctx, h.name, field)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := h.codec.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	if _, err := h.conn.HDel(ctx, h.name, field); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Len returns the number of fields
func (h *HashSetting[V]) Len(ctx context.Context) (int64, error) {
	return h.conn.HLen(ctx, h.name)
}

// Has reports whether a field exists
func (h *HashSetting[V]) Has(ctx context.Context, field string) (bool, error) {
	return h.conn.HExists(ctx, h.name, field)
}

// Keys returns all field names
func (h *HashSetting[V]) Keys(ctx context.Context) ([]string, error) {
	raw, err := h.conn.HGetAll(ctx, h.name)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for field := range raw {
		keys = append(keys, field)
	}
	return keys, nil
}

// Values returns all values
func (h *HashSetting[V]) Values(ctx context.Context) ([]V, error) {
	raw, err := h.conn.HGetAll(ctx, h.name)
	if err != nil {
		return nil, err
	}
	values := make([]V, 0, len(raw))
	for _, s := range raw {
		v, err := h.codec.Decode(s)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Clear removes the hash
func (h *HashSetting[V]) Clear(ctx context.Context) error {
	_, err := h.conn.Del(ctx, h.name)
	return err
}

// Scan iterates the hash in server-driven pages, calling fn for every
// field matching the glob pattern. Iteration stops when fn returns
// false or the cursor returns to zero.
func (h *HashSetting[V]) Scan(ctx context.Context, match string, fn func(field string, v V) bool) error {
	var cursor uint64
	for {
		pairs, next, err := h.conn.HScan(ctx, h.name, cursor, match, 100)
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			v, err := h.codec.Decode(pairs[i+1])
			if err != nil {
				return err
			}
			if !fn(pairs[i], v) {
				return nil
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// PrefetchKeys implements redisclient.Prefetchable
func (h *HashSetting[V]) PrefetchKeys() []redisclient.PrefetchKey {
	return []redisclient.PrefetchKey{{Name: h.name, Kind: redisclient.KindHash}}
}
