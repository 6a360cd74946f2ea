package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps one session scope in a single Redis hash, so Clear is a
// single DEL and the scope cannot leak keys.
type RedisStore struct {
	client  *redis.Client
	hashKey string
}

// NewRedisStore scopes the store to the given session ID. Two stores built
// with different session IDs never observe each other's keys.
func NewRedisStore(client *redis.Client, sessionID string) *RedisStore {
	return &RedisStore{
		client:  client,
		hashKey: "portal:session:" + sessionID,
	}
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := rs.client.HGet(ctx, rs.hashKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[RedisStore.Get] HGet")
	}
	return value, nil
}

func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := rs.client.HSet(ctx, rs.hashKey, key, value).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Set] HSet")
	}
	return nil
}

func (rs *RedisStore) Remove(ctx context.Context, key string) error {
	if err := rs.client.HDel(ctx, rs.hashKey, key).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Remove] HDel")
	}
	return nil
}

func (rs *RedisStore) Clear(ctx context.Context) error {
	if err := rs.client.Del(ctx, rs.hashKey).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Clear] Del")
	}
	return nil
}
