package config

import (
	"strings"
	"time"
)

// CacheConfig drives the Redis response cache in front of the menu
// endpoint. Entries are scoped per authenticated user by the
// middleware; the settings here control lifetime, namespacing and
// which requests qualify.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* environment variables. The default
// TTL is short: role and resource edits in the admin surface must
// show up in resolved menus within a minute without any explicit
// invalidation hook. Menu forests are small, so the body cap mainly
// guards against caching an unexpectedly large response.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", time.Minute),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "menus"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 262144),
	}
}

func parseMethods(s string) map[string]bool {
	m := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
