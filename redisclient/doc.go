// Package redisclient provides the connection layer between blisscore and
// the Redis data store.
//
// # Client
//
// Client wraps a go-redis connection with status tracking, retrying
// connection establishment, server-side script registration, and the
// typed command surface (Commands) the settings layer consumes.
//
// # CacheConnection
//
// CacheConnection is a client-side read-through/write-through cache over
// a Client. It mirrors remote keys locally and keeps the mirror
// consistent via the server's broadcast invalidation push
// (CLIENT TRACKING ... BCAST, pushed on the __redis__:invalidate
// channel). When the server cannot track keys the connection degrades
// permanently to a transparent pass-through; this is never retried.
//
// On a cache miss the connection issues one batched round trip fetching
// the missed key plus every registered prefetch key not already
// resident, so a single fill pays for all "always warm" objects at once.
// Writes go through to the server and then update the mirror with the
// written value directly; concurrent writers on other connections
// converge through the invalidation channel.
//
// # CacheRegistry
//
// CacheRegistry hands out one shared CacheConnection per database index.
// It replaces an ambient process-global: construct it once at startup
// and pass it to whoever needs cached settings.
package redisclient
