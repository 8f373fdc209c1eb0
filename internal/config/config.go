package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	RedisAddr       string
	CacheBackend    string
	CacheStaleTime  time.Duration
	QueueBackend    string
	QueueKey        string
	RateLimitPerMin int
	ResetSchedule   string
	SeedFile        string
	SeedRandom      uint64
	CORSOrigins     []string
	AccessLog       bool
	JobRetention    time.Duration

	// Warnings lists values that could not be parsed and fell back to defaults.
	Warnings []string
}

// Production reports whether the app runs with production settings.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// UsesRedis reports whether the cache or the queue needs a redis connection.
func (a App) UsesRedis() bool {
	return a.CacheBackend == "redis" || a.QueueBackend == "redis"
}

// Load reads an optional .env file and returns application config populated
// from environment variables with sensible defaults.
func Load() (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds the config from the current environment only.
func FromEnv() App {
	var a App
	a.Env = getEnv("APP_ENV", "dev")
	a.HTTPPort = getEnv("HTTP_PORT", "8081")
	a.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	a.CacheBackend = a.oneOf("CACHE_BACKEND", "memory", "memory", "redis")
	a.CacheStaleTime = a.durationEnv("CACHE_STALE_TIME", 5*time.Minute)
	a.QueueBackend = a.oneOf("QUEUE_BACKEND", "memory", "memory", "redis")
	a.QueueKey = getEnv("QUEUE_KEY", "attendance:bulk")
	a.RateLimitPerMin = a.intEnv("RATE_LIMIT_PER_MIN", 120)
	a.ResetSchedule = getEnv("RESET_SCHEDULE", "")
	a.SeedFile = getEnv("SEED_FILE", "")
	a.SeedRandom = a.uintEnv("SEED_RANDOM", 42)
	a.CORSOrigins = listEnv("CORS_ORIGINS", []string{"*"})
	a.AccessLog = a.boolEnv("ACCESS_LOG", true)
	a.JobRetention = a.durationEnv("JOB_RETENTION", time.Hour)
	return a
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (a *App) warnf(format string, args ...any) {
	a.Warnings = append(a.Warnings, fmt.Sprintf(format, args...))
}

func (a *App) oneOf(key, fallback string, allowed ...string) string {
	val := getEnv(key, fallback)
	for _, v := range allowed {
		if strings.EqualFold(val, v) {
			return v
		}
	}
	a.warnf("invalid value %q for %s, using fallback %s", val, key, fallback)
	return fallback
}

func (a *App) durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			a.warnf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func (a *App) boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		a.warnf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func (a *App) intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		a.warnf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func (a *App) uintEnv(key string, fallback uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.ParseUint(val, 10, 64)
		if err == nil {
			return parsed
		}
		a.warnf("invalid unsigned int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
