// Package cache provides a generic, thread-safe in-process cache used as
// the local mirror of the client-side Redis cache.
//
// The only implementation has no eviction policy on purpose: mirror
// entries must stay resident until the server pushes an invalidation for
// their key, so LRU or TTL eviction would silently break the consistency
// contract. Statistics are always enabled.
package cache
