package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearRateLimitEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_CAPACITY", "RATE_LIMIT_REFILL_TOKENS",
		"RATE_LIMIT_REFILL_INTERVAL", "RATE_LIMIT_TTL", "RATE_LIMIT_KEY_STRATEGY",
		"RATE_LIMIT_PREFIX", "RATE_LIMIT_DEBUG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	clearRateLimitEnv(t)
	cfg := LoadRateLimitConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 10, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 6*time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_route", cfg.KeyStrategy)
	assert.Equal(t, "authrl", cfg.Prefix)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	clearRateLimitEnv(t)
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "30s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity, "a zero-capacity bucket would refuse everything forever")
	assert.Equal(t, 5*time.Minute, cfg.TTL, "bucket state must outlive the refill cadence")
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	for _, k := range []string{
		"CACHE_ENABLED", "CACHE_METHODS", "CACHE_TTL",
		"CACHE_KEY_STRATEGY", "CACHE_PREFIX", "CACHE_MAX_BODY_BYTES",
	} {
		t.Setenv(k, "")
	}
	cfg := LoadCacheConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true}, cfg.Methods)
	assert.Equal(t, time.Minute, cfg.TTL)
	assert.Equal(t, "menus", cfg.Prefix)

	t.Setenv("CACHE_METHODS", "get, head")
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, LoadCacheConfig().Methods)
}
