package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores keys under a namespace prefix so that Clear only touches
// this client's keys, never the whole database.
type RedisStorage struct {
	db            redis.UniversalClient
	prefix        string
	scanBatchSize int64
}

// NewRedisStorage wraps a connected client. namespace may be empty, in which
// case keys are stored unprefixed and Clear scans every key.
func NewRedisStorage(client redis.UniversalClient, namespace string) *RedisStorage {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	return &RedisStorage{
		db:            client,
		prefix:        prefix,
		scanBatchSize: 1000,
	}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

// Set stores the value without expiration; sessions end by explicit removal.
func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.db.Del(ctx, s.prefix+key).Err()
}

// Clear removes all namespaced keys using SCAN to avoid blocking Redis.
func (s *RedisStorage) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		batch, next, err := s.db.Scan(ctx, cursor, s.prefix+"*", s.scanBatchSize).Result()
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := s.db.Del(ctx, batch...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
