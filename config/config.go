package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/esrf-bliss/blisscore/errors"
)

// envPrefix is prepended to all environment override variable names.
const envPrefix = "BLISS"

// Config represents the complete library configuration
type Config struct {
	Redis    RedisConfig    `yaml:"redis"`
	Streams  StreamConfig   `yaml:"streams"`
	Scanning ScanningConfig `yaml:"scanning"`
}

// RedisConfig describes the connection to the Redis data store
type RedisConfig struct {
	Address     string        `yaml:"address"`
	DB          int           `yaml:"db"`
	Password    string        `yaml:"password,omitempty"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// StreamConfig holds defaults for data streams
type StreamConfig struct {
	// MaxLen bounds new streams; 0 means unbounded.
	MaxLen int64 `yaml:"max_len"`
	// Approximate trims with the ~ modifier (fast, inexact).
	Approximate bool `yaml:"approximate"`
}

// ScanningConfig holds defaults for acquisition chains
type ScanningConfig struct {
	// ParallelPrepare relaxes cross-branch ordering during prepare.
	ParallelPrepare bool `yaml:"parallel_prepare"`
	// ReadPollPeriod is the delay between polls in hardware-triggered
	// reading loops.
	ReadPollPeriod time.Duration `yaml:"read_poll_period"`
	// StopTimeout bounds the best-effort unwind of a failed iteration.
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			Address:     "localhost:6379",
			DB:          0,
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
		},
		Streams: StreamConfig{
			MaxLen:      0,
			Approximate: true,
		},
		Scanning: ScanningConfig{
			ParallelPrepare: false,
			ReadPollPeriod:  10 * time.Millisecond,
			StopTimeout:     30 * time.Second,
		},
	}
}

// Load reads the configuration from a YAML file, applies environment
// overrides and validates the result. An empty path loads defaults plus
// overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "read file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse yaml")
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if val := os.Getenv(envPrefix + "_REDIS_ADDRESS"); val != "" {
		c.Redis.Address = val
	}
	if val := os.Getenv(envPrefix + "_REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			c.Redis.DB = db
		}
	}
	if val := os.Getenv(envPrefix + "_REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}
	if val := os.Getenv(envPrefix + "_REDIS_POOL_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Redis.PoolSize = n
		}
	}
	if val := os.Getenv(envPrefix + "_STREAMS_MAX_LEN"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Streams.MaxLen = n
		}
	}
	if val := os.Getenv(envPrefix + "_SCANNING_PARALLEL_PREPARE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Scanning.ParallelPrepare = b
		}
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Redis.Address == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "redis address")
	}
	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: redis db %d out of range [0,15]", errors.ErrInvalidConfig, c.Redis.DB),
			"config", "Validate", "redis db")
	}
	if c.Redis.PoolSize < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: negative pool size", errors.ErrInvalidConfig),
			"config", "Validate", "redis pool size")
	}
	if c.Streams.MaxLen < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: negative stream max_len", errors.ErrInvalidConfig),
			"config", "Validate", "stream max_len")
	}
	if c.Scanning.ReadPollPeriod < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: negative read poll period", errors.ErrInvalidConfig),
			"config", "Validate", "read poll period")
	}
	return nil
}
