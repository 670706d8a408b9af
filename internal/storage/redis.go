package storage

import (
	"context"
	stderrors "errors"

	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written to redis.
const KeyPrefix = "shadowscript:"

// Redis is a KV backed by a redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis connects lazily to addr.
func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewStorageUnavailable(err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, KeyPrefix+key, value, 0).Err(); err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, KeyPrefix+key).Err(); err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
