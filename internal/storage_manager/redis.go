package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV is the part of a go-redis client the Redis backend uses.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisFileProvider stores each document as one string key, namespaced by keyPrefix.
type RedisFileProvider struct {
	client    RedisKV
	keyPrefix string
}

func NewRedisFileProvider(client RedisKV, keyPrefix string) *RedisFileProvider {
	return &RedisFileProvider{client: client, keyPrefix: keyPrefix}
}

func (p *RedisFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := p.client.Get(ctx, p.keyPrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return data, nil
}

func (p *RedisFileProvider) Write(ctx context.Context, path string, data []byte) error {
	if err := p.client.Set(ctx, p.keyPrefix+path, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (p *RedisFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	n, err := p.client.Exists(ctx, p.keyPrefix+path).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}
	return n > 0, nil
}

func (p *RedisFileProvider) Delete(ctx context.Context, path string) error {
	if err := p.client.Del(ctx, p.keyPrefix+path).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// List walks SCAN with a prefix match until the cursor returns to zero.
func (p *RedisFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(p.keyPrefix+prefix) + "*"
	out := []string{}
	var cursor uint64
	for {
		keys, next, err := p.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", prefix, err)
		}
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, p.keyPrefix))
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
