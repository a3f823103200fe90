package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "sdimg:payload:"
	pingTimeout = 3 * time.Second
)

// RedisCache keeps payloads in Redis with a fixed expiry
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis server at address. A ttl of zero keeps entries forever.
func NewRedis(address string, ttl time.Duration) (*RedisCache, error) {
	if ttl < 0 {
		return nil, fmt.Errorf("invalid cache ttl: %s", ttl)
	}
	client := redis.NewClient(&redis.Options{Addr: address})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", address, err)
	}

	slog.Debug("RedisCache: connected", "address", address, "ttl", ttl)
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value string) error {
	if err := c.client.Set(ctx, keyPrefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
