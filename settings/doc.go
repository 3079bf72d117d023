// Package settings provides typed references to values stored in
// Redis.
//
// A setting is a named handle over one Redis key. SimpleSetting maps a
// scalar key, HashSetting a hash, QueueSetting a list. Settings hold no
// local state: every operation is a remote round trip unless the
// underlying connection is a redisclient.CacheConnection, in which case
// reads are served from its mirror.
//
// Values cross the wire as strings. A Codec is applied before every
// write and after every read, uniformly across scalar, list and map
// result shapes.
package settings
