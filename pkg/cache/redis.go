package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "saime:cache:"

// Redis stores blobs in Redis, letting Redis expire them after the TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis backend. A zero TTL keeps entries forever.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// DialRedis connects to url and checks the connection.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Get returns the blob stored under signature.
func (r *Redis) Get(ctx context.Context, signature string) ([]byte, error) {
	blob, err := r.client.Get(ctx, redisKeyPrefix+signature).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return blob, nil
}

// Put stores blob under signature.
func (r *Redis) Put(ctx context.Context, signature string, blob []byte) error {
	return r.client.Set(ctx, redisKeyPrefix+signature, blob, r.ttl).Err()
}

// Stats counts the cache keys with SCAN.
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: "redis"}
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		stats.Entries++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("redis scan: %w", err)
	}
	return stats, nil
}
