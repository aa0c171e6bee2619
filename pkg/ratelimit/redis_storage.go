// Package ratelimit provides a Redis-backed storage for Fiber's limiter
// middleware, so rate-limit counters live in an injected, explicitly scoped
// store instead of process-wide memory and survive restarts and replicas.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements fiber.Storage on top of a Redis client.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to Redis using a URL of the form
// redis://[user:pass@]host:port/db and verifies the connection.
func NewRedisStorage(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

// Get returns the value for the key, or nil when it does not exist.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// Set stores the value under the key with an expiry; exp of zero means no
// expiry.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), key, val, exp).Err()
}

// Delete removes the key.
func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), key).Err()
}

// Reset flushes every key in the database.
func (s *RedisStorage) Reset() error {
	return s.client.FlushDB(context.Background()).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
