package checkers

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPinger is the part of a go-redis client the checker needs.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker pings a Redis server.
type RedisChecker struct {
	client RedisPinger
	name   string
}

// NewRedisChecker checks client under name ("redis" when empty).
func NewRedisChecker(client RedisPinger, name string) *RedisChecker {
	if name == "" {
		name = "redis"
	}
	return &RedisChecker{client: client, name: name}
}

func (r *RedisChecker) Name() string { return r.name }

func (r *RedisChecker) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
