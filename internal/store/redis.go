package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces the collection hashes so the store can share a Redis
// database with other application data.
const keyPrefix = "records:"

// RedisStore is a RecordStore driver that keeps each collection in a single
// Redis hash (field = record id, value = raw JSON).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore around an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient builds a client from the REDIS_ADDR environment variable,
// defaulting to localhost for development.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
}

func collectionKey(collection string) string {
	return keyPrefix + collection
}

// Get returns the record with the given id, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	data, err := s.client.HGet(ctx, collectionKey(collection), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget %s/%s: %w", collection, id, err)
	}
	return data, nil
}

// List returns every record in the collection.
func (s *RedisStore) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	raw, err := s.client.HGetAll(ctx, collectionKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", collection, err)
	}
	out := make(map[string]json.RawMessage, len(raw))
	for id, rec := range raw {
		out[id] = json.RawMessage(rec)
	}
	return out, nil
}

// Upsert writes the record inside a WATCH transaction so a concurrent writer
// to the same record surfaces as ErrConflict instead of a silent last-wins.
func (s *RedisStore) Upsert(ctx context.Context, collection, id string, record json.RawMessage) error {
	key := collectionKey(collection)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, []byte(record))
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("redis hset %s/%s: %w", collection, id, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("redis hset %s/%s: %w", collection, id, err)
	}
	return nil
}

// Remove deletes the record; removing a missing record is a no-op.
func (s *RedisStore) Remove(ctx context.Context, collection, id string) error {
	if err := s.client.HDel(ctx, collectionKey(collection), id).Err(); err != nil {
		return fmt.Errorf("redis hdel %s/%s: %w", collection, id, err)
	}
	return nil
}
