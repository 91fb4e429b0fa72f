package internal

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by plain Redis string keys, for sharing a
// cache between several machines.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore wraps an existing client. Keys are prefixed with namespace.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

// OpenRedisStore connects to the Redis server at url and pings it
func OpenRedisStore(ctx context.Context, url, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, &StorageError{Key: url, Op: "open", Err: err}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &StorageError{Key: url, Op: "open", Err: err}
	}
	return NewRedisStore(client, namespace), nil
}

func (s *RedisStore) key(k string) string {
	return s.namespace + k
}

// Get returns the value stored under key or ErrNotFound
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Key: key, Op: "get", Err: err}
	}
	return value, nil
}

// Put replaces the value stored under key
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return &StorageError{Key: key, Op: "put", Err: err}
	}
	return nil
}

// Delete removes key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return &StorageError{Key: key, Op: "delete", Err: err}
	}
	return nil
}

// List returns all pairs whose key starts with prefix, ordered by key
func (s *RedisStore) List(ctx context.Context, prefix string) ([]KeyValuePair, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, &StorageError{Key: prefix, Op: "list", Err: err}
	}
	sort.Strings(keys)

	pairs := make([]KeyValuePair, 0, len(keys))
	for _, k := range keys {
		value, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// deleted between SCAN and GET
			continue
		}
		if err != nil {
			return nil, &StorageError{Key: k, Op: "list", Err: err}
		}
		pairs = append(pairs, KeyValuePair{Key: k[len(s.namespace):], Value: value})
	}
	return pairs, nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
