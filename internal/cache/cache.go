package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache is a small read-path cache for booking list queries. Entries are
// keyed by the full query shape and indexed per user, so a write touching a
// booker and an item owner invalidates exactly their cached pages and
// nothing else.
type Cache interface {
	// Get unmarshals the cached value for key into dest. The boolean
	// reports whether the key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key and registers the key in the index of
	// every listed user so Invalidate can find it later.
	Set(ctx context.Context, key string, value any, users ...int64) error

	// Invalidate drops every cached entry registered to the given users.
	Invalidate(ctx context.Context, users ...int64) error
}

// NewRedisClient creates a redis client from address and password.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Cache backed by redis with the given entry TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) Cache {
	return &redisCache{
		client: client,
		ttl:    ttl,
	}
}

func indexKey(userID int64) string {
	return "cache:idx:" + strconv.FormatInt(userID, 10)
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any, users ...int64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	for _, u := range users {
		idx := indexKey(u)
		pipe.SAdd(ctx, idx, key)
		// Index outlives entries slightly so stale members are harmless.
		pipe.Expire(ctx, idx, 2*c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, users ...int64) error {
	for _, u := range users {
		idx := indexKey(u)
		keys, err := c.client.SMembers(ctx, idx).Result()
		if err != nil {
			return fmt.Errorf("failed to read cache index: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cached entries: %w", err)
			}
		}
		if err := c.client.Del(ctx, idx).Err(); err != nil {
			return fmt.Errorf("failed to delete cache index: %w", err)
		}
	}
	return nil
}

type noopCache struct{}

// NewNoop returns a Cache that stores nothing, used when no redis address
// is configured.
func NewNoop() Cache {
	return noopCache{}
}

func (noopCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	return false, nil
}

func (noopCache) Set(ctx context.Context, key string, value any, users ...int64) error {
	return nil
}

func (noopCache) Invalidate(ctx context.Context, users ...int64) error {
	return nil
}
