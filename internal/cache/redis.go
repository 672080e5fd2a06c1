package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache wraps the Redis client with the generic operations shared by the
// ephemeral stores in this package. Callers hold the typed wrappers
// (UnreadCache, PresenceDirectory, RoomListCache), never the client.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ctx: context.Background(),
	}
}

// Get retrieves a value from Redis; a missing key returns (nil, nil).
func (c *RedisCache) Get(key string) ([]byte, error) {
	val, err := c.client.Get(c.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

// GetInt reads an integer counter; a missing key reads as zero.
func (c *RedisCache) GetInt(key string) (int, error) {
	val, err := c.client.Get(c.ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// HGetInt reads an integer hash field; a missing field reads as zero.
func (c *RedisCache) HGetInt(key, field string) (int, error) {
	val, err := c.client.HGet(c.ctx, key, field).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Set stores a value in Redis with TTL (0 means no expiry).
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.client.Set(c.ctx, key, value, ttl).Err()
}

// Delete removes keys from Redis.
func (c *RedisCache) Delete(keys ...string) error {
	return c.client.Del(c.ctx, keys...).Err()
}

// Exists checks if a key exists
func (c *RedisCache) Exists(key string) bool {
	count, _ := c.client.Exists(c.ctx, key).Result()
	return count > 0
}

// Expire refreshes a key's TTL.
func (c *RedisCache) Expire(key string, ttl time.Duration) error {
	return c.client.Expire(c.ctx, key, ttl).Err()
}

// TxPipeline starts a MULTI/EXEC pipeline for grouped writes.
func (c *RedisCache) TxPipeline() redis.Pipeliner {
	return c.client.TxPipeline()
}

// Pipeline starts a plain pipeline for batched writes.
func (c *RedisCache) Pipeline() redis.Pipeliner {
	return c.client.Pipeline()
}

// Exec runs a pipeline built against this cache.
func (c *RedisCache) Exec(pipe redis.Pipeliner) error {
	_, err := pipe.Exec(c.ctx)
	return err
}

// Context returns the context pipelined commands should be queued under.
func (c *RedisCache) Context() context.Context {
	return c.ctx
}

// Ping checks if Redis is alive
func (c *RedisCache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
