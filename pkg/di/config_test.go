package di

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
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
backend: redis
log_level: debug
cache:
  prefix: etaxi
  default_ttl: 2m
  single_flight: true
redis:
  host: cache.internal
  port: 6380
  db: 2
breaker:
  enabled: true
  consecutive_failures: 3
db:
  driver: sqlite3
  dsn: "file::memory:"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "etaxi", cfg.Cache.Prefix)
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL)
	assert.True(t, cfg.Cache.EnabledByDefault, "unset keys keep their defaults")
	assert.True(t, cfg.Cache.SingleFlight)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, int64(100), cfg.Redis.ScanCount)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(3), cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_CACHE_DEFAULT_TTL", "45s")
	t.Setenv("REDIS_HOST", "redis.example")
	t.Setenv("REDIS_PORT", "6390")
	t.Setenv("REDIS_PASSWORD", "s3cret")

	cfg, err := LoadConfig(writeConfig(t, "redis:\n  host: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, 45*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "redis.example:6390", cfg.Redis.Addr(), "environment wins over the file")
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestLoadConfig_DurationsInSeconds(t *testing.T) {
	path := writeConfig(t, `
cache:
  default_ttl: 300
memory:
  max_ttl: 1.5
breaker:
  timeout: 1m
`)
	t.Setenv("CACHE_BREAKER_INTERVAL", "90")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 300*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Memory.MaxTTL)
	assert.Equal(t, time.Minute, cfg.Breaker.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Breaker.Interval)
}

func TestLoadConfig_PrefixedRedisEnvironment(t *testing.T) {
	t.Setenv("CACHE_REDIS_HOST", "prefixed.example")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed.example", cfg.Redis.Host)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown backend", body: "backend: memcached\n"},
		{name: "bad log level", body: "log_level: loud\n"},
		{name: "ttl too short", body: "cache:\n  default_ttl: 10ms\n"},
		{name: "prefix with glob", body: "cache:\n  prefix: \"a*\"\n"},
		{name: "unknown driver", body: "db:\n  driver: oracle\n  dsn: x\n"},
		{name: "driver without dsn", body: "db:\n  driver: pgx\n"},
		{name: "redis port", body: "backend: redis\nredis:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAppConfig_ValidateSkipsUnusedBackend(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.Redis.Port = 0
	assert.NoError(t, cfg.Validate(), "redis settings are ignored by the memory backend")

	cfg.Backend = BackendRedis
	assert.Error(t, cfg.Validate())
}
