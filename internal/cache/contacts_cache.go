// Package cache stores resolved contact lists in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contactbook/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps user lists as hashes holding the JSON payload and the
// time it was cached.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaxRetries:   3,
	})
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached users for key. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) ([]models.User, bool, error) {
	data, err := c.client.HGet(ctx, key, "data").Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var users []models.User
	if err := json.Unmarshal([]byte(data), &users); err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return users, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"data":      string(data),
		"cached_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Version returns the counter stored at key, 0 when it was never bumped.
func (c *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Bump increments the counters at keys in one transaction. Entries written
// under an older version are never read again and age out with their TTL.
func (c *RedisCache) Bump(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()
	for _, key := range keys {
		pipe.Incr(ctx, key)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
