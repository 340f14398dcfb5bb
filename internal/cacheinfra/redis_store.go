package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared store used in multi-instance deployments.
type RedisStore struct {
	client      redis.UniversalClient
	scanCount   int64
	deleteBatch int
}

// NewRedisClient opens a client for cfg. The connection is lazy; use Ping to
// verify reachability.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

// NewRedisStore wraps an existing client. Zero scan settings fall back to
// DefaultRedisConfig.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	def := DefaultRedisConfig()
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = def.ScanCount
	}
	if cfg.DeleteBatch <= 0 {
		cfg.DeleteBatch = def.DeleteBatch
	}
	return &RedisStore{
		client:      client,
		scanCount:   cfg.ScanCount,
		deleteBatch: cfg.DeleteBatch,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, true, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// DeleteAll issues DEL in batches and returns the number of keys Redis removed.
func (s *RedisStore) DeleteAll(ctx context.Context, keys ...string) (int, error) {
	removed := 0
	for start := 0; start < len(keys); start += s.deleteBatch {
		end := min(start+s.deleteBatch, len(keys))
		n, err := s.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("redis del: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

// KeysMatching walks the keyspace with SCAN. SCAN may return a key more than
// once, so results are de-duplicated.
func (s *RedisStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string

	iter := s.client.Scan(ctx, 0, pattern, s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", pattern, err)
	}
	return keys, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Info returns the raw INFO reply.
func (s *RedisStore) Info(ctx context.Context) (string, error) {
	info, err := s.client.Info(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("redis info: %w", err)
	}
	return info, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
