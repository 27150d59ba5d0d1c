package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "medipulse:"

// RedisBackend stores each collection as a string key.
type RedisBackend struct {
	client redis.Cmdable
	prefix string
	closer func() error
}

// NewRedisBackend wraps client. A blank prefix uses "medipulse:".
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if client == nil {
		panic("store: redis client required")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix, closer: client.Close}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) key(c Collection) string { return b.prefix + string(c) }

func (b *RedisBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(c)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: redis get %s: %w", c, err)
	}
	return data, nil
}

func (b *RedisBackend) Save(ctx context.Context, c Collection, data []byte) error {
	if err := b.client.Set(ctx, b.key(c), data, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", c, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
