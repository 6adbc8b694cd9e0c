package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis server.
type Redis struct {
	client      *redis.Client
	serviceName string
}

var _ Store = (*Redis)(nil)

// NewRedis returns a Store backed by Redis. Every key is prefixed with
// serviceName so several services can share one instance.
func NewRedis(addr, serviceName string) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{Addr: addr}), serviceName)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, serviceName string) *Redis {
	return &Redis{
		client:      client,
		serviceName: serviceName,
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, GenerateKey(r.serviceName, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %q: %w", key, err)
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, GenerateKey(r.serviceName, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, GenerateKey(r.serviceName, key)).Err(); err != nil {
		return fmt.Errorf("redis: delete %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity, used by the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
