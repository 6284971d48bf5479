package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Define.Concurrency)
	assert.Equal(t, 18*time.Second, cfg.Define.Timeout)
	assert.Equal(t, 128, cfg.Define.QueueDepth)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 512, cfg.Cache.Capacity)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Realtime.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Realtime.PingInterval)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8123")
	t.Setenv("DEFINE_CONCURRENCY", "2")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MAX_CONNECTIONS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8123", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Define.Concurrency)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 10, cfg.Realtime.MaxConnections)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("DEFINE_TIMEOUT_SEC", "not-a-number")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 18*time.Second, cfg.Define.Timeout)
}
