package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration for the cart service.
type Config struct {
	Addr      string
	Redis     RedisConfig
	Catalogue CatalogueConfig
	CartTTL   time.Duration
}

// RedisConfig holds connection settings for the cart store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CatalogueConfig holds settings for the remote product catalogue.
type CatalogueConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("CART_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379"
	}

	catalogueURL := os.Getenv("CATALOGUE_URL")
	if catalogueURL == "" {
		catalogueURL = "http://catalogue:8080"
	}

	// Carts expire an hour after the last write unless refreshed.
	ttl := 3600 * time.Second
	if v := os.Getenv("CART_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	return Config{
		Addr: addr,
		Redis: RedisConfig{
			URL:          redisURL,
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Catalogue: CatalogueConfig{
			BaseURL: catalogueURL,
			Timeout: 5 * time.Second,
		},
		CartTTL: ttl,
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
