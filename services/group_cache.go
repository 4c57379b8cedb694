package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const groupCacheKey = "products:groups"

// GroupCache is a time-boxed Redis cache for AI grouping results. Grouping
// calls are slow and paid, so the last result is reused until it expires or
// an order mutation invalidates it. A nil cache (Redis not configured)
// disables caching: every method is a safe no-op.
type GroupCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var groupCacheInstance *GroupCache

// InitGroupCache connects to Redis and installs the global cache instance.
func InitGroupCache(redisURL string, ttl time.Duration) (*GroupCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	groupCacheInstance = &GroupCache{rdb: rdb, ttl: ttl}
	return groupCacheInstance, nil
}

// GetGroupCache returns the global cache instance; nil when Redis is not configured.
func GetGroupCache() *GroupCache {
	return groupCacheInstance
}

// SetGroupCache sets the cache instance (primarily for testing)
func SetGroupCache(cache *GroupCache) {
	groupCacheInstance = cache
}

// Get returns the cached grouping result, or false when absent or expired.
func (c *GroupCache) Get(ctx context.Context) ([]GroupedProduct, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	val, err := c.rdb.Get(ctx, groupCacheKey).Result()
	if err != nil {
		return nil, false
	}

	var groups []GroupedProduct
	if err := json.Unmarshal([]byte(val), &groups); err != nil {
		return nil, false
	}
	return groups, true
}

// Set stores a grouping result under the configured TTL.
func (c *GroupCache) Set(ctx context.Context, groups []GroupedProduct) {
	if c == nil || c.rdb == nil {
		return
	}

	payload, err := json.Marshal(groups)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, groupCacheKey, payload, c.ttl)
}

// Invalidate drops the cached result. Called whenever order items change.
func (c *GroupCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, groupCacheKey)
}

// Close releases the Redis connection.
func (c *GroupCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
