package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a shared go-redis client. All Jobdeck keys are
// namespaced with a prefix so the store can share a Redis database with
// sessions and other consumers.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed store. The prefix is prepended to every
// key (e.g., "jobdeck:").
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Get retrieves the value for key. redis.Nil maps to the absent case.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %q from redis: %w", key, err)
	}
	return val, true, nil
}

// Set writes the value for key with the given ttl (zero = no expiry).
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("writing %q to redis: %w", key, err)
	}
	return nil
}

// Remove deletes the key. Deleting an absent key is a no-op.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("deleting %q from redis: %w", key, err)
	}
	return nil
}
