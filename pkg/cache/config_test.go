package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisConfigDefaults(t *testing.T) {
	cfg := newRedisConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, "chartfeed", cfg.Prefix)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestRedisConfigOptions(t *testing.T) {
	cfg := newRedisConfig(
		WithRedisAddr("::1", 6380),
		WithRedisAuth("secret", 3),
		WithRedisPool(0, 2, 0),
		WithRedisDialTimeout(0),
		WithRedisPrefix("staging"),
	)
	assert.Equal(t, "[::1]:6380", cfg.Addr)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, 10, cfg.PoolSize, "zero keeps the default")
	assert.Equal(t, 2, cfg.MinIdleConns)
	assert.Equal(t, 30*time.Second, cfg.PoolTimeout)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, "staging", cfg.Prefix)

	assert.Equal(t, "localhost:6379", newRedisConfig(WithRedisAddr("", 1)).Addr)
}

func TestMemoryConfigRejectsNonPositiveCleanup(t *testing.T) {
	cfg := newMemoryConfig(WithMemoryCleanup(0), WithMemoryMaxSize(-1), WithMemoryClock(nil))
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 1000, cfg.MaxSize)
	assert.NotNil(t, cfg.Clock)

	mc := NewMemoryCache(WithMemoryCleanup(0))
	assert.NoError(t, mc.Close())
}

func TestLayeredConfig(t *testing.T) {
	cfg := newLayeredConfig(WithLayeredMemorySize(50), WithLayeredMaxL1TTL(time.Minute))
	assert.Equal(t, 50, cfg.MemoryMaxSize)
	assert.Equal(t, time.Minute, cfg.MaxL1TTL)
}
