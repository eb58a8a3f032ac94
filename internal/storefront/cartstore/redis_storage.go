// internal/storefront/cartstore/redis_storage.go
package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage namespaces keys per device so several terminals signed in as
// the same device share one cart
type RedisStorage struct {
	client   *redis.Client
	deviceID string
	ttl      time.Duration
}

// NewRedisStorage creates a RedisStorage. A zero ttl keeps keys forever.
func NewRedisStorage(client *redis.Client, deviceID string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client:   client,
		deviceID: deviceID,
		ttl:      ttl,
	}
}

func (r *RedisStorage) key(key string) string {
	return fmt.Sprintf("storefront:%s:%s", r.deviceID, key)
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, r.ttl).Err()
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
