package eventstore

import (
	"context"
	"fmt"
	"time"

	"farcaster-trader/internal/model"

	redis "github.com/redis/go-redis/v9"
)

// Redis keeps processed keys in Redis so dedup survives restarts and is
// shared by replicas. Keys expire after ttl.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// CheckAndMark issues SET NX, which Redis applies atomically.
func (s *Redis) CheckAndMark(ctx context.Context, key model.EventKey) (bool, error) {
	k := s.prefix + string(key)
	ok, err := s.client.SetNX(ctx, k, time.Now().UTC().Format(time.RFC3339Nano), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", k, err)
	}
	return ok, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
