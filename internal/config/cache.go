package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.  Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.
type CacheConfig struct {
	Enabled      bool          `default:"true"`
	Methods      []string      `default:"GET"`
	TTL          time.Duration `default:"30s"`
	KeyStrategy  string        `split_words:"true" default:"route_query"`
	Prefix       string        `default:"cache"`
	MaxBodyBytes int           `split_words:"true" default:"1048576"`

	methodSet map[string]bool
}

// LoadCacheConfig reads CACHE_* variables.  All methods are upper-cased.
func LoadCacheConfig() (CacheConfig, error) {
	var cfg CacheConfig
	if err := envconfig.Process("CACHE", &cfg); err != nil {
		return CacheConfig{}, fmt.Errorf("load cache config: %w", err)
	}
	cfg.methodSet = parseMethods(cfg.Methods)
	return cfg, nil
}

// Caches reports whether responses to the given HTTP method are cacheable.
func (c CacheConfig) Caches(method string) bool {
	set := c.methodSet
	if set == nil {
		set = parseMethods(c.Methods)
	}
	return set[strings.ToUpper(method)]
}

func parseMethods(list []string) map[string]bool {
	m := map[string]bool{}
	for _, p := range list {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
