package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "f2h:"

// RedisStore keeps records as plain Redis strings. Batches run inside MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// ConnectRedis dials Redis and verifies the connection
func ConnectRedis(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("redis get "+key, err)
	}
	return data, true, nil
}

func (r *RedisStore) Apply(ctx context.Context, ops ...Op) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			if op.Delete {
				pipe.Del(ctx, r.prefix+op.Key)
				continue
			}
			pipe.Set(ctx, r.prefix+op.Key, op.Value, 0)
		}
		return nil
	})
	return wrap("redis apply", err)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
