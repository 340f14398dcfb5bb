package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/match"
	"github.com/viccon/sturdyc"
)

// ErrInvalidTTL is returned when an entry is written without a positive TTL.
var ErrInvalidTTL = errors.New("cacheinfra: ttl must be positive")

// memoryEntry is what the sturdyc client holds for each key. sturdyc only
// knows a client-wide TTL, so each entry carries its own deadline.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process store backed by a sturdyc client. It serves
// single-process deployments and tests; keys are matched with Redis glob
// semantics so invalidation patterns behave the same as against Redis.
type MemoryStore struct {
	client   *sturdyc.Client[memoryEntry]
	capacity int
	maxTTL   time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a new sturdyc-backed store.
// It validates the configuration and initializes a sturdyc client with the provided settings.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
		cfg.toSturdycOptions()...,
	)

	return &MemoryStore{
		client:   client,
		capacity: cfg.Capacity,
		maxTTL:   cfg.MaxTTL,
		now:      time.Now,
	}, nil
}

// Get returns the live value stored under key. Expired entries are removed
// on access and reported as a miss.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	entry, ok := s.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// SetWithTTL stores a copy of value under key.
func (s *MemoryStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	s.client.Set(key, memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	})
	return nil
}

// DeleteAll removes keys and returns how many of them held a live entry.
func (s *MemoryStore) DeleteAll(ctx context.Context, keys ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		if _, ok := s.live(key); ok {
			removed++
		}
		s.client.Delete(key)
	}
	return removed, nil
}

// KeysMatching returns the live keys matching a Redis-style glob pattern.
func (s *MemoryStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	for _, key := range s.client.ScanKeys() {
		if !match.Match(key, pattern) {
			continue
		}
		if _, ok := s.live(key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Ping reports the caller's context state; the store itself is always reachable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Info summarises the store in Redis INFO style.
func (s *MemoryStore) Info(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("# Memory\r\nbackend:sturdyc\r\nentries:%d\r\ncapacity:%d\r\nmax_ttl_seconds:%d\r\n",
		s.client.Size(), s.capacity, int64(s.maxTTL/time.Second)), nil
}

func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.client.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		s.client.Delete(key)
		return memoryEntry{}, false
	}
	return entry, true
}
