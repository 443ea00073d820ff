package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	lowimpl "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "biodata:"

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisBackend stores drafts in redis under a fixed key prefix
type RedisBackend struct {
	internal *lowimpl.Client
}

var _ Backend = (*RedisBackend)(nil)

// OpenRedis connects to redis and verifies the connection
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	client := lowimpl.NewClient(&lowimpl.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}
	log.Printf("[INFO] redis draft backend connected to %s", opts.Addr)
	return &RedisBackend{internal: client}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.internal.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, lowimpl.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	return r.internal.Set(ctx, redisKeyPrefix+key, value, 0).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.internal.Del(ctx, redisKeyPrefix+key).Err()
}

func (r *RedisBackend) Close() error {
	if r.internal == nil {
		return nil
	}
	return r.internal.Close()
}
