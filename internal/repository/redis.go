package repository

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// redisCmdable is the subset of *redis.Client used by RedisKV.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisKV stores blobs as plain Redis string values without expiry.
type RedisKV struct {
	client redisCmdable
}

// NewRedisKV constructs a RedisKV. Pass a *redis.Client.
func NewRedisKV(client redisCmdable) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "get blob %q", key)
	}
	return value, nil
}

func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return pkgerrors.Wrapf(err, "put blob %q", key)
	}
	return nil
}
