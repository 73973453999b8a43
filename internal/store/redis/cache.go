// Package redis caches computed indicator series in Redis so repeated
// chart requests for the same symbol/kind/period skip recomputation.
//
// Every Redis call runs through a circuit breaker: when Redis is down the
// cache degrades to a permanent miss instead of surfacing errors, and the
// gateway silently recomputes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"chartengine/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// CacheConfig configures the indicator result cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // per-entry expiry; <= 0 disables expiry
}

// Cache stores JSON-marshalled indicator series under deterministic keys.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	cb     *CircuitBreaker
}

// NewCache creates a Cache and pings the server. A failed ping is not
// fatal — the breaker will open on first use and the cache degrades to
// recompute-always.
func NewCache(cfg CacheConfig, cb *CircuitBreaker) *Cache {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[cache] redis not reachable at %s: %v (continuing without cache)", cfg.Addr, err)
	} else {
		log.Printf("[cache] connected to %s", cfg.Addr)
	}

	return &Cache{
		client: client,
		ttl:    cfg.TTL,
		cb:     cb,
	}
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Close releases the client connection pool.
func (c *Cache) Close() error { return c.client.Close() }

// Key builds the cache key for one indicator request.
// tf and threshold are part of the identity because the gateway resamples
// and downsamples before caching.
func Key(symbol, kind string, period int, tf float64, threshold int) string {
	return fmt.Sprintf("ind:%s:%s:%d:%g:%d", symbol, kind, period, tf, threshold)
}

// Get returns the cached series for key, or ok=false on miss, decode
// failure, or an open breaker.
func (c *Cache) Get(ctx context.Context, key string) ([]model.IndicatorPoint, bool) {
	var raw string
	err := c.cb.Execute(func() error {
		var err error
		raw, err = c.client.Get(ctx, key).Result()
		if err == goredis.Nil {
			raw = ""
			return nil // miss, not a Redis failure
		}
		return err
	})
	if err != nil || raw == "" {
		return nil, false
	}

	var points []model.IndicatorPoint
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		// Corrupt entry: drop it and recompute.
		c.cb.Execute(func() error { return c.client.Del(ctx, key).Err() })
		return nil, false
	}
	return points, true
}

// Set stores a computed series under key. Failures are swallowed; the
// breaker tracks them.
func (c *Cache) Set(ctx context.Context, key string, points []model.IndicatorPoint) {
	data, err := json.Marshal(points)
	if err != nil {
		return
	}
	c.cb.Execute(func() error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
}

// InvalidateSymbol removes all cached series for a symbol, called after
// new bars are ingested for it.
func (c *Cache) InvalidateSymbol(ctx context.Context, symbol string) {
	pattern := fmt.Sprintf("ind:%s:*", symbol)
	c.cb.Execute(func() error {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		return iter.Err()
	})
}
