package redisclient

import (
	"context"
	stderrors "errors"
	"maps"
	"path"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/metric"
	"github.com/esrf-bliss/blisscore/pkg/cache"
)

// CacheState is the caching lifecycle state of a CacheConnection
type CacheState int32

// Caching states. A connection that fails the tracking handshake moves
// to CacheDisabled and stays there: it keeps answering every command as
// a transparent pass-through.
const (
	CacheUninitialized CacheState = iota
	CacheEnabled
	CacheDisabled
)

// String returns the string representation of CacheState
func (s CacheState) String() string {
	switch s {
	case CacheUninitialized:
		return "uninitialized"
	case CacheEnabled:
		return "enabled"
	case CacheDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// mirrorEntry is one locally mirrored key. Entries are immutable once
// stored; updates replace the whole entry. The zero entry means "key
// known to be absent" for every data type.
type mirrorEntry struct {
	kind   Kind
	exists bool
	str    string
	hash   map[string]string
	list   []string
	zset   []string
}

// present reports whether the mirrored key exists remotely
func (e *mirrorEntry) present() bool {
	switch e.kind {
	case KindHash:
		return len(e.hash) > 0
	case KindQueue:
		return len(e.list) > 0
	case KindZSet:
		return len(e.zset) > 0
	default:
		return e.exists
	}
}

// CacheConnection is a read-through, write-through cache over a Client.
//
// On first use it tries to enable server-side key tracking (CLIENT
// TRACKING in BCAST REDIRECT mode). If the server supports it, reads
// are served from a local mirror kept consistent by the server's
// invalidation push; writes go to the server and then update the mirror
// in place with the value just written. If the handshake fails the
// connection degrades permanently to a pass-through.
//
// A read miss fills the mirror with the missed key plus every
// registered prefetch key not already resident, in one batched
// transaction.
type CacheConnection struct {
	client  *Client
	logger  Logger
	metrics *metric.Metrics

	state atomic.Int32
	inv   invalidator

	mirror *cache.SimpleCache[*mirrorEntry]

	// mu guards state transitions and the prefetch registrations
	mu       sync.Mutex
	prefetch map[PrefetchKey]int

	listenerWG sync.WaitGroup
}

// NewCacheConnection creates a caching connection over client. No
// handshake happens until the first command.
func NewCacheConnection(client *Client) *CacheConnection {
	return newCacheConnection(client, newTrackingInvalidator(client))
}

func newCacheConnection(client *Client, inv invalidator) *CacheConnection {
	return &CacheConnection{
		client:   client,
		logger:   client.logger,
		metrics:  client.metrics,
		inv:      inv,
		mirror:   cache.NewSimple[*mirrorEntry](),
		prefetch: make(map[PrefetchKey]int),
	}
}

// State returns the caching lifecycle state
func (cc *CacheConnection) State() CacheState {
	return CacheState(cc.state.Load())
}

// Client returns the underlying connection
func (cc *CacheConnection) Client() *Client {
	return cc.client
}

// MirrorSize returns the number of keys currently mirrored
func (cc *CacheConnection) MirrorSize() int {
	return cc.mirror.Size()
}

// ensureOpen performs the lazy tracking handshake. It returns true when
// the mirror is live. A failed handshake disables caching permanently.
func (cc *CacheConnection) ensureOpen(ctx context.Context) bool {
	switch cc.State() {
	case CacheEnabled:
		return true
	case CacheDisabled:
		return false
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	switch cc.State() {
	case CacheEnabled:
		return true
	case CacheDisabled:
		return false
	}

	if err := cc.inv.open(ctx); err != nil {
		cc.logger.Printf("client-side caching unavailable on %s (db %d), falling back to pass-through: %v",
			cc.client.addr, cc.client.db, err)
		cc.state.Store(int32(CacheDisabled))
		return false
	}

	cc.state.Store(int32(CacheEnabled))
	cc.listenerWG.Add(1)
	go cc.listen(cc.inv.invalidations())
	return true
}

// listen evicts invalidated keys until the listener connection ends,
// then drops the whole mirror so no stale value can survive the gap.
func (cc *CacheConnection) listen(ch <-chan []string) {
	defer cc.listenerWG.Done()
	for keys := range ch {
		for _, key := range keys {
			if removed, _ := cc.mirror.Delete(key); removed {
				if cc.metrics != nil {
					cc.metrics.RecordCacheInvalidation()
				}
			}
		}
	}

	cc.mu.Lock()
	_ = cc.mirror.Clear()
	if cc.State() == CacheEnabled {
		cc.state.Store(int32(CacheUninitialized))
	}
	cc.mu.Unlock()
}

// Close stops the invalidation listener and drops the mirror. The
// connection may be reused; the next command redoes the handshake.
func (cc *CacheConnection) Close() error {
	cc.mu.Lock()
	enabled := cc.State() == CacheEnabled
	if enabled {
		_ = cc.inv.close()
	}
	cc.mu.Unlock()

	if enabled {
		cc.listenerWG.Wait()
	} else {
		_ = cc.mirror.Clear()
	}
	return nil
}

// AddPrefetch registers the keys of p to stay resident in the mirror.
// The returned handle must be released when p goes out of use.
func (cc *CacheConnection) AddPrefetch(p Prefetchable) *PrefetchHandle {
	keys := p.PrefetchKeys()
	cc.mu.Lock()
	for _, k := range keys {
		cc.prefetch[k]++
	}
	cc.mu.Unlock()
	return &PrefetchHandle{conn: cc, keys: keys}
}

func (cc *CacheConnection) removePrefetch(keys []PrefetchKey) {
	cc.mu.Lock()
	for _, k := range keys {
		if n := cc.prefetch[k]; n <= 1 {
			delete(cc.prefetch, k)
			_, _ = cc.mirror.Delete(k.Name)
		} else {
			cc.prefetch[k] = n - 1
		}
	}
	cc.mu.Unlock()
}

// fillCache fetches the wanted key plus every non-resident prefetch key
// in one transaction and stores the results in the mirror.
func (cc *CacheConnection) fillCache(ctx context.Context, want PrefetchKey) error {
	targets := []PrefetchKey{want}
	seen := map[string]bool{want.Name: true}
	cc.mu.Lock()
	for pk := range cc.prefetch {
		if seen[pk.Name] {
			continue
		}
		if _, resident := cc.mirror.Get(pk.Name); resident {
			continue
		}
		seen[pk.Name] = true
		targets = append(targets, pk)
	}
	cc.mu.Unlock()

	pipe := cc.client.TxPipeline()
	strCmds := make(map[int]*redis.StringCmd)
	hashCmds := make(map[int]*redis.MapStringStringCmd)
	listCmds := make(map[int]*redis.StringSliceCmd)
	for i, t := range targets {
		switch t.Kind {
		case KindHash:
			hashCmds[i] = pipe.HGetAll(ctx, t.Name)
		case KindQueue:
			listCmds[i] = pipe.LRange(ctx, t.Name, 0, -1)
		case KindZSet:
			listCmds[i] = pipe.ZRange(ctx, t.Name, 0, -1)
		default:
			strCmds[i] = pipe.Get(ctx, t.Name)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && !stderrors.Is(err, redis.Nil) {
		return errors.WrapTransient(err, "CacheConnection", "fillCache", want.Name)
	}

	for i, t := range targets {
		var entry *mirrorEntry
		switch t.Kind {
		case KindHash:
			m, err := hashCmds[i].Result()
			if err != nil {
				continue
			}
			entry = &mirrorEntry{kind: KindHash, hash: m}
		case KindQueue:
			vals, err := listCmds[i].Result()
			if err != nil {
				continue
			}
			entry = &mirrorEntry{kind: KindQueue, list: vals}
		case KindZSet:
			vals, err := listCmds[i].Result()
			if err != nil {
				continue
			}
			entry = &mirrorEntry{kind: KindZSet, zset: vals}
		default:
			val, err := strCmds[i].Result()
			if stderrors.Is(err, redis.Nil) {
				entry = &mirrorEntry{kind: KindKey}
			} else if err != nil {
				continue
			} else {
				entry = &mirrorEntry{kind: KindKey, exists: true, str: val}
			}
		}
		_, _ = cc.mirror.Set(t.Name, entry)
	}
	return nil
}

// entry returns the mirrored entry for key, filling the mirror on a
// miss. ok=false means the caller must fall back to a direct round
// trip (caching off, or the fill failed).
func (cc *CacheConnection) entry(ctx context.Context, key string, kind Kind) (*mirrorEntry, bool) {
	if !cc.ensureOpen(ctx) {
		return nil, false
	}
	if e, resident := cc.mirror.Get(key); resident {
		cc.recordHit()
		return e, true
	}
	cc.recordMiss()
	if err := cc.fillCache(ctx, PrefetchKey{Name: key, Kind: kind}); err != nil {
		cc.logger.Errorf("cache fill for %q failed: %v", key, err)
		return nil, false
	}
	if e, resident := cc.mirror.Get(key); resident {
		return e, true
	}
	return nil, false
}

// storeEntry mirrors a value just written. Write errors from the mirror
// only occur for keys the server would have rejected anyway.
func (cc *CacheConnection) storeEntry(key string, e *mirrorEntry) {
	_, _ = cc.mirror.Set(key, e)
}

// write returns the command surface remote writes must go through while
// caching is enabled, so the server does not invalidate this client's
// own writes.
func (cc *CacheConnection) write() redis.Cmdable {
	if cc.State() == CacheEnabled {
		return cc.inv.writer()
	}
	return cc.client.rdb
}

func (cc *CacheConnection) recordHit() {
	if cc.metrics != nil {
		cc.metrics.RecordCacheHit()
	}
}

func (cc *CacheConnection) recordMiss() {
	if cc.metrics != nil {
		cc.metrics.RecordCacheMiss()
	}
}

// --- string keys ---

// Get returns the value of a string key, served from the mirror when
// resident.
func (cc *CacheConnection) Get(ctx context.Context, key string) (string, bool, error) {
	if e, ok := cc.entry(ctx, key, KindKey); ok {
		return e.str, e.exists, nil
	}
	return cc.client.Get(ctx, key)
}

// Set writes a string key and mirrors the written value
func (cc *CacheConnection) Set(ctx context.Context, key, value string) error {
	if !cc.ensureOpen(ctx) {
		return cc.client.Set(ctx, key, value)
	}
	if err := cc.write().Set(ctx, key, value, 0).Err(); err != nil {
		return errors.WrapTransient(err, "CacheConnection", "Set", key)
	}
	cc.storeEntry(key, &mirrorEntry{kind: KindKey, exists: true, str: value})
	return nil
}

// SetEx writes a string key with a time-to-live. The mirrored value is
// evicted by the server's expiry notification.
func (cc *CacheConnection) SetEx(ctx context.Context, key, value string, ttlSeconds int64) error {
	if !cc.ensureOpen(ctx) {
		return cc.client.SetEx(ctx, key, value, ttlSeconds)
	}
	if err := cc.write().SetEx(ctx, key, value, secDuration(ttlSeconds)).Err(); err != nil {
		return errors.WrapTransient(err, "CacheConnection", "SetEx", key)
	}
	cc.storeEntry(key, &mirrorEntry{kind: KindKey, exists: true, str: value})
	return nil
}

// Del removes keys and mirrors their absence
func (cc *CacheConnection) Del(ctx context.Context, keys ...string) (int64, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.Del(ctx, keys...)
	}
	n, err := cc.write().Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "CacheConnection", "Del", "keys")
	}
	for _, key := range keys {
		cc.storeEntry(key, &mirrorEntry{})
	}
	return n, nil
}

// Exists reports whether a key exists
func (cc *CacheConnection) Exists(ctx context.Context, key string) (bool, error) {
	if e, ok := cc.entry(ctx, key, KindKey); ok {
		return e.present(), nil
	}
	return cc.client.Exists(ctx, key)
}

// IncrBy atomically adds delta to an integer key. The server reply is
// the exact new value, so the mirror is updated from it.
func (cc *CacheConnection) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.IncrBy(ctx, key, delta)
	}
	n, err := cc.write().IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "CacheConnection", "IncrBy", key)
	}
	cc.storeEntry(key, &mirrorEntry{kind: KindKey, exists: true, str: strconv.FormatInt(n, 10)})
	return n, nil
}

// IncrByFloat atomically adds delta to a float key. The server's textual
// float representation is not reproduced locally, so the mirror entry is
// dropped instead of updated.
func (cc *CacheConnection) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.IncrByFloat(ctx, key, delta)
	}
	n, err := cc.write().IncrByFloat(ctx, key, delta).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "CacheConnection", "IncrByFloat", key)
	}
	_, _ = cc.mirror.Delete(key)
	return n, nil
}

// --- hashes ---

// HGet returns one field of a hash
func (cc *CacheConnection) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if e, ok := cc.entry(ctx, key, KindHash); ok {
		val, found := e.hash[field]
		return val, found, nil
	}
	return cc.client.HGet(ctx, key, field)
}

// HGetAll returns all fields of a hash
func (cc *CacheConnection) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if e, ok := cc.entry(ctx, key, KindHash); ok {
		if e.hash == nil {
			return map[string]string{}, nil
		}
		return maps.Clone(e.hash), nil
	}
	return cc.client.HGetAll(ctx, key)
}

// HSet writes one field of a hash and updates the resident mirror entry
func (cc *CacheConnection) HSet(ctx context.Context, key, field, value string) error {
	if !cc.ensureOpen(ctx) {
		return cc.client.HSet(ctx, key, field, value)
	}
	if err := cc.write().HSet(ctx, key, field, value).Err(); err != nil {
		return errors.WrapTransient(err, "CacheConnection", "HSet", key)
	}
	cc.updateHash(key, func(h map[string]string) {
		h[field] = value
	})
	return nil
}

// HMSet writes several fields of a hash in one round trip
func (cc *CacheConnection) HMSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if !cc.ensureOpen(ctx) {
		return cc.client.HMSet(ctx, key, fields)
	}
	args := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	if err := cc.write().HSet(ctx, key, args...).Err(); err != nil {
		return errors.WrapTransient(err, "CacheConnection", "HMSet", key)
	}
	cc.updateHash(key, func(h map[string]string) {
		for f, v := range fields {
			h[f] = v
		}
	})
	return nil
}

// HDel removes fields from a hash
func (cc *CacheConnection) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.HDel(ctx, key, fields...)
	}
	n, err := cc.write().HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "CacheConnection", "HDel", key)
	}
	cc.updateHash(key, func(h map[string]string) {
		for _, f := range fields {
			delete(h, f)
		}
	})
	return n, nil
}

// HLen returns the number of fields in a hash
func (cc *CacheConnection) HLen(ctx context.Context, key string) (int64, error) {
	if e, ok := cc.entry(ctx, key, KindHash); ok {
		return int64(len(e.hash)), nil
	}
	return cc.client.HLen(ctx, key)
}

// HExists reports whether a hash field exists
func (cc *CacheConnection) HExists(ctx context.Context, key, field string) (bool, error) {
	if e, ok := cc.entry(ctx, key, KindHash); ok {
		_, found := e.hash[field]
		return found, nil
	}
	return cc.client.HExists(ctx, key, field)
}

// HScan pages over the mirrored hash with server cursor semantics:
// cursor 0 starts over, a returned cursor of 0 means the scan is
// complete, and a page larger than the remainder returns the remainder
// with a terminal cursor.
func (cc *CacheConnection) HScan(ctx context.Context, key string, cursor uint64, match string, count int64) ([]string, uint64, error) {
	e, ok := cc.entry(ctx, key, KindHash)
	if !ok {
		return cc.client.HScan(ctx, key, cursor, match, count)
	}

	fields := make([]string, 0, len(e.hash))
	for f := range e.hash {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	if count <= 0 {
		count = 10
	}
	if cursor > uint64(len(fields)) {
		cursor = uint64(len(fields))
	}

	pairs := make([]string, 0, count*2)
	pos := cursor
	for pos < uint64(len(fields)) && int64(pos-cursor) < count {
		f := fields[pos]
		pos++
		if match != "" {
			if matched, err := path.Match(match, f); err != nil || !matched {
				continue
			}
		}
		pairs = append(pairs, f, e.hash[f])
	}
	next := pos
	if next >= uint64(len(fields)) {
		next = 0
	}
	return pairs, next, nil
}

// updateHash rewrites the resident hash entry with fn applied. A key
// that is not resident stays absent; the next read refetches it.
func (cc *CacheConnection) updateHash(key string, fn func(map[string]string)) {
	e, resident := cc.mirror.Get(key)
	if !resident {
		return
	}
	h := make(map[string]string, len(e.hash)+1)
	maps.Copy(h, e.hash)
	fn(h)
	cc.storeEntry(key, &mirrorEntry{kind: KindHash, hash: h})
}

// --- lists ---

// LIndex returns the element at index of a list
func (cc *CacheConnection) LIndex(ctx context.Context, key string, index int64) (string, bool, error) {
	if e, ok := cc.entry(ctx, key, KindQueue); ok {
		n := int64(len(e.list))
		if index < 0 {
			index += n
		}
		if index < 0 || index >= n {
			return "", false, nil
		}
		return e.list[index], true, nil
	}
	return cc.client.LIndex(ctx, key, index)
}

// LLen returns the length of a list
func (cc *CacheConnection) LLen(ctx context.Context, key string) (int64, error) {
	if e, ok := cc.entry(ctx, key, KindQueue); ok {
		return int64(len(e.list)), nil
	}
	return cc.client.LLen(ctx, key)
}

// LPush prepends values to a list
func (cc *CacheConnection) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.LPush(ctx, key, values...)
	}
	n, err := cc.write().LPush(ctx, key, toAny(values)...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "CacheConnection", "LPush", key)
	}
	cc.updateList(key, func(l []string) []string {
		head := make([]string, 0, len(values)+len(l))
		for i := len(values) - 1; i >= 0; i-- {
			head = append(head, values[i])
		}
		return append(head, l...)
	})
	return n, nil
}

// RPush appends values to a list
func (cc *CacheConnection) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.RPush(ctx, key, values...)
	}
	n, err := cc.write().RPush(ctx, key, toAny(values)...).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "CacheConnection", "RPush", key)
	}
	cc.updateList(key, func(l []string) []string {
		return append(append([]string{}, l...), values...)
	})
	return n, nil
}

// LPop removes and returns the first element of a list
func (cc *CacheConnection) LPop(ctx context.Context, key string) (string, bool, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.LPop(ctx, key)
	}
	val, found, err := stringResult(cc.write().LPop(ctx, key).Result())
	if err != nil {
		return "", false, errors.WrapTransient(err, "CacheConnection", "LPop", key)
	}
	if found {
		cc.updateList(key, func(l []string) []string {
			if len(l) == 0 {
				return l
			}
			return append([]string{}, l[1:]...)
		})
	}
	return val, found, nil
}

// RPop removes and returns the last element of a list
func (cc *CacheConnection) RPop(ctx context.Context, key string) (string, bool, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.RPop(ctx, key)
	}
	val, found, err := stringResult(cc.write().RPop(ctx, key).Result())
	if err != nil {
		return "", false, errors.WrapTransient(err, "CacheConnection", "RPop", key)
	}
	if found {
		cc.updateList(key, func(l []string) []string {
			if len(l) == 0 {
				return l
			}
			return append([]string{}, l[:len(l)-1]...)
		})
	}
	return val, found, nil
}

// LRange returns the elements of a list between start and stop inclusive
func (cc *CacheConnection) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if e, ok := cc.entry(ctx, key, KindQueue); ok {
		return sliceRange(e.list, start, stop), nil
	}
	return cc.client.LRange(ctx, key, start, stop)
}

// LSet overwrites the element at index of a list
func (cc *CacheConnection) LSet(ctx context.Context, key string, index int64, value string) error {
	if !cc.ensureOpen(ctx) {
		return cc.client.LSet(ctx, key, index, value)
	}
	if err := cc.write().LSet(ctx, key, index, value).Err(); err != nil {
		return errors.WrapTransient(err, "CacheConnection", "LSet", key)
	}
	cc.updateList(key, func(l []string) []string {
		i := index
		if i < 0 {
			i += int64(len(l))
		}
		if i < 0 || i >= int64(len(l)) {
			return l
		}
		out := append([]string{}, l...)
		out[i] = value
		return out
	})
	return nil
}

// LRem removes count occurrences of value from a list
func (cc *CacheConnection) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	if !cc.ensureOpen(ctx) {
		return cc.client.LRem(ctx, key, count, value)
	}
	n, err := cc.write().LRem(ctx, key, count, value).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "CacheConnection", "LRem", key)
	}
	cc.updateList(key, func(l []string) []string {
		return removeOccurrences(l, count, value)
	})
	return n, nil
}

// updateList rewrites the resident list entry with fn applied
func (cc *CacheConnection) updateList(key string, fn func([]string) []string) {
	e, resident := cc.mirror.Get(key)
	if !resident {
		return
	}
	cc.storeEntry(key, &mirrorEntry{kind: KindQueue, list: fn(e.list)})
}

// --- sorted sets ---

// ZRange returns the members of a sorted set between rank start and stop
func (cc *CacheConnection) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if e, ok := cc.entry(ctx, key, KindZSet); ok {
		return sliceRange(e.zset, start, stop), nil
	}
	return cc.client.ZRange(ctx, key, start, stop)
}

// --- pipeline and scripting ---

// Pipeline returns a raw pipeline. Pipelined commands bypass the cache
// bookkeeping, so the whole mirror is dropped first.
func (cc *CacheConnection) Pipeline() redis.Pipeliner {
	_ = cc.mirror.Clear()
	return cc.client.Pipeline()
}

// TxPipeline returns a raw transactional pipeline, dropping the mirror
// like Pipeline does.
func (cc *CacheConnection) TxPipeline() redis.Pipeliner {
	_ = cc.mirror.Clear()
	return cc.client.TxPipeline()
}

// RunScript evaluates a registered script. The mirror entries for the
// script's key arguments are dropped since the script may mutate them.
func (cc *CacheConnection) RunScript(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	for _, key := range keys {
		_, _ = cc.mirror.Delete(key)
	}
	return cc.client.RunScript(ctx, name, keys, args...)
}

// sliceRange applies Redis LRANGE index semantics to a materialized
// slice: inclusive bounds, negative indices count from the end.
func sliceRange(items []string, start, stop int64) []string {
	n := int64(len(items))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n || stop < 0 {
		return []string{}
	}
	return append([]string{}, items[start:stop+1]...)
}

// removeOccurrences applies Redis LREM semantics: count > 0 removes
// from the head, count < 0 from the tail, count == 0 removes all.
func removeOccurrences(l []string, count int64, value string) []string {
	out := make([]string, 0, len(l))
	switch {
	case count > 0:
		remaining := count
		for _, v := range l {
			if v == value && remaining > 0 {
				remaining--
				continue
			}
			out = append(out, v)
		}
	case count < 0:
		remaining := -count
		for i := len(l) - 1; i >= 0; i-- {
			v := l[i]
			if v == value && remaining > 0 {
				remaining--
				continue
			}
			out = append(out, v)
		}
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	default:
		for _, v := range l {
			if v != value {
				out = append(out, v)
			}
		}
	}
	return out
}
