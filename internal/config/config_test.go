package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_ENV", "HTTP_PORT", "REDIS_ADDR", "CACHE_BACKEND", "CACHE_STALE_TIME",
	"QUEUE_BACKEND", "QUEUE_KEY", "RATE_LIMIT_PER_MIN", "RESET_SCHEDULE",
	"SEED_FILE", "SEED_RANDOM", "CORS_ORIGINS", "ACCESS_LOG", "JOB_RETENTION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheStaleTime)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, "attendance:bulk", cfg.QueueKey)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Empty(t, cfg.ResetSchedule)
	assert.Equal(t, uint64(42), cfg.SeedRandom)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.AccessLog)
	assert.Equal(t, time.Hour, cfg.JobRetention)
	assert.False(t, cfg.Production())
	assert.False(t, cfg.UsesRedis())
	assert.Empty(t, cfg.Warnings)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_STALE_TIME", "30s")
	t.Setenv("SEED_RANDOM", "7")
	t.Setenv("RESET_SCHEDULE", "@daily")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("ACCESS_LOG", "false")
	t.Setenv("JOB_RETENTION", "15m")

	cfg := FromEnv()
	assert.True(t, cfg.Production())
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, 30*time.Second, cfg.CacheStaleTime)
	assert.Equal(t, uint64(7), cfg.SeedRandom)
	assert.Equal(t, "@daily", cfg.ResetSchedule)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.AccessLog)
	assert.Equal(t, 15*time.Minute, cfg.JobRetention)
}

func TestInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUEUE_BACKEND", "kafka")
	t.Setenv("CACHE_STALE_TIME", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("SEED_RANDOM", "-1")
	t.Setenv("ACCESS_LOG", "maybe")

	cfg := FromEnv()
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheStaleTime)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, uint64(42), cfg.SeedRandom)
	assert.True(t, cfg.AccessLog)
	assert.Len(t, cfg.Warnings, 5)
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("HTTP_PORT")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_PORT=9999\n"), 0o600))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.HTTPPort)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.HTTPPort)
}
