package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 500, c.Chunks.Size)
	assert.Equal(t, 500, c.Source.PageSize)
	assert.Equal(t, "postgrest", c.Source.Type)
	assert.Equal(t, "memory", c.Cache.Type)
	assert.Equal(t, 10*time.Second, c.Cache.LiveTTL)
	assert.Zero(t, c.Cache.SealedTTL)
	assert.True(t, c.Metrics.Enabled)
	assert.False(t, c.Kafka.Enabled)
	assert.False(t, c.IsDevelopment())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: development
server:
  port: 9090
chunks:
  size: 250
source:
  type: clickhouse
  clickhouse:
    host: ch.internal
    table: market_candles
cache:
  type: layered
  live_ttl: 0s
  redis:
    host: redis.internal
metrics:
  enabled: false
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.IsDevelopment())
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 250, c.Chunks.Size)
	assert.Equal(t, "ch.internal", c.Source.ClickHouse.Host)
	assert.Equal(t, "market_candles", c.Source.ClickHouse.Table)
	assert.Equal(t, 9000, c.Source.ClickHouse.Port, "unset keys keep their defaults")
	assert.Equal(t, "layered", c.Cache.Type)
	assert.Zero(t, c.Cache.LiveTTL)
	assert.Equal(t, "redis.internal", c.Cache.Redis.Host)
	assert.False(t, c.Metrics.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"environment": "environment: qa\n",
		"source":      "source:\n  type: mysql\n",
		"cache":       "cache:\n  type: memcached\n",
		"chunk size":  "chunks:\n  size: 0\n",
		"kafka":       "kafka:\n  enabled: true\n",
		"yaml":        "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("SOURCE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CACHE_LIVE_TTL", "3s")

	c, err := LoadWithEnv("")
	require.NoError(t, err)

	assert.Equal(t, EnvStaging, c.Environment)
	assert.Equal(t, "postgres", c.Source.Type)
	assert.Equal(t, "postgres://u:p@db:5432/app?sslmode=disable", c.Source.Postgres.DSN)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 100, c.Chunks.Size)
	assert.Equal(t, 3*time.Second, c.Cache.LiveTTL)
}

func TestLoadWithEnvBadNumber(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "eighty")

	_, err := LoadWithEnv("")
	assert.ErrorContains(t, err, "env PORT")
}
