// Package cache provides the dashboard summary cache backends.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSummaryCache implements billing.SummaryCache on Redis.
// Suitable for deployments where multiple instances serve the dashboard.
type RedisSummaryCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSummaryCache creates a new Redis-backed summary cache
func NewRedisSummaryCache(cfg RedisConfig) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSummaryCache{
		client:    client,
		keyPrefix: "billing:",
	}, nil
}

// NewRedisSummaryCacheWithClient creates a cache with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisSummaryCacheWithClient(client *redis.Client, keyPrefix string) *RedisSummaryCache {
	if keyPrefix == "" {
		keyPrefix = "billing:"
	}
	return &RedisSummaryCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached value for key, or (nil, nil) on a miss
func (c *RedisSummaryCache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read summary cache: %w", err)
	}
	return raw, nil
}

// Set stores value under key with the given TTL
func (c *RedisSummaryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}

// Invalidate drops the given keys
func (c *RedisSummaryCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.keyPrefix + key
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate summary cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisSummaryCache) GetClient() *redis.Client {
	return c.client
}
