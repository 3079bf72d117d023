package redisclient

import (
	"github.com/esrf-bliss/blisscore/config"
)

// NewClientFromConfig builds a client from the library configuration.
// Explicit options take precedence over the configured values.
func NewClientFromConfig(cfg *config.RedisConfig, opts ...ClientOption) (*Client, error) {
	base := []ClientOption{
		WithDB(cfg.DB),
		WithPoolSize(cfg.PoolSize),
		WithDialTimeout(cfg.DialTimeout),
	}
	if cfg.Password != "" {
		base = append(base, WithPassword(cfg.Password))
	}
	return NewClient(cfg.Address, append(base, opts...)...)
}

// FactoryFromConfig returns a ClientFactory for a CacheRegistry: same
// server and credentials, one client per requested database.
func FactoryFromConfig(cfg *config.RedisConfig, opts ...ClientOption) ClientFactory {
	return func(db int) (*Client, error) {
		dbCfg := *cfg
		dbCfg.DB = db
		return NewClientFromConfig(&dbCfg, opts...)
	}
}
