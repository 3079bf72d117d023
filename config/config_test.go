package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.True(t, cfg.Streams.Approximate)
	assert.False(t, cfg.Scanning.ParallelPrepare)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bliss.yaml")
	content := `
redis:
  address: "redis.beamline:6379"
  db: 3
  pool_size: 20
  dial_timeout: 2s
streams:
  max_len: 500
  approximate: true
scanning:
  parallel_prepare: true
  read_poll_period: 20ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.beamline:6379", cfg.Redis.Address)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, int64(500), cfg.Streams.MaxLen)
	assert.True(t, cfg.Scanning.ParallelPrepare)
	assert.Equal(t, 20*time.Millisecond, cfg.Scanning.ReadPollPeriod)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BLISS_REDIS_ADDRESS", "env-host:6380")
	t.Setenv("BLISS_REDIS_DB", "5")
	t.Setenv("BLISS_SCANNING_PARALLEL_PREPARE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-host:6380", cfg.Redis.Address)
	assert.Equal(t, 5, cfg.Redis.DB)
	assert.True(t, cfg.Scanning.ParallelPrepare)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Redis.Address = "" }},
		{"db out of range", func(c *Config) { c.Redis.DB = 42 }},
		{"negative pool", func(c *Config) { c.Redis.PoolSize = -1 }},
		{"negative maxlen", func(c *Config) { c.Streams.MaxLen = -1 }},
		{"negative poll period", func(c *Config) { c.Scanning.ReadPollPeriod = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
