package config

// This file defines a Redis client constructor for the application.  Redis is
// used for distributed rate limiting, HTTP response caching and, when
// BOOKING_LOCK_BACKEND=redis, for the per-flight booking lock.  If connection
// fails during startup, the constructor returns nil and callers degrade
// gracefully by disabling those features.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig is read from REDIS_* variables.  Host and Port take
// precedence over Addr when both are set.
type RedisConfig struct {
	Host     string
	Port     string
	Addr     string `default:"localhost:6379"`
	Password string
	DB       int    `default:"0"`
	TLS      bool   `default:"false"`
}

// LoadRedisConfig reads REDIS_* variables.
func LoadRedisConfig() (RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process("REDIS", &cfg); err != nil {
		return RedisConfig{}, fmt.Errorf("load redis config: %w", err)
	}
	if cfg.Host != "" && cfg.Port != "" {
		cfg.Addr = cfg.Host + ":" + cfg.Port
	}
	return cfg, nil
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The returned client is nil if a connection cannot be established.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
