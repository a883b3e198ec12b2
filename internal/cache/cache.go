// Package cache is a thin namespaced Redis cache, used for the /formats
// payload and storage statistics. The service runs fine without Redis; a
// nil *Cache disables caching.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trunov/converthub/internal/config"
)

type Cache struct {
	redis     redis.UniversalClient
	namespace string
}

// NewCache connects to Redis and returns the cache, or nil (no error) when
// no address is configured.
func NewCache(ctx context.Context, namespace string, cfg *config.RedisConfig) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	cl := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DatabaseID,
		DialTimeout:  cfg.DialTimeout * time.Second,
		ReadTimeout:  cfg.ReadTimeout * time.Second,
		WriteTimeout: cfg.WriteTimeout * time.Second,
	})
	if err := cl.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{redis: cl, namespace: namespace}, nil
}

// Get returns the cached value, or "" on miss or disabled cache.
func (c *Cache) Get(ctx context.Context, key string) string {
	if c == nil {
		return ""
	}
	val, err := c.redis.Get(ctx, c.namespace+":"+key).Result()
	if err != nil {
		return ""
	}
	return val
}

func (c *Cache) Store(ctx context.Context, key string, ttl time.Duration, value string) {
	if c == nil {
		return
	}
	c.redis.Set(ctx, c.namespace+":"+key, value, ttl)
}

func (c *Cache) Remove(ctx context.Context, key string) {
	if c == nil {
		return
	}
	c.redis.Del(ctx, c.namespace+":"+key)
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.redis.Close()
}
