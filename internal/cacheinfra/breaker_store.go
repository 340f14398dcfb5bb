package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Backend is the key-value contract every store in this package satisfies.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteAll(ctx context.Context, keys ...string) (int, error)
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	Info(ctx context.Context) (string, error)
}

var (
	_ Backend = (*MemoryStore)(nil)
	_ Backend = (*RedisStore)(nil)
	_ Backend = (*BreakerStore)(nil)
)

// BreakerStore fails fast once the wrapped backend keeps erroring, so a dead
// Redis costs a cache miss rather than a network timeout per request.
type BreakerStore struct {
	next Backend
	cb   *gobreaker.CircuitBreaker
}

type getResult struct {
	data  []byte
	found bool
}

// NewBreakerStore wraps next. When cfg is disabled next is returned unchanged.
func NewBreakerStore(next Backend, cfg BreakerConfig, logger logrus.FieldLogger) (Backend, error) {
	if !cfg.Enabled {
		return next, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	settings := cfg.settings()
	settings.IsSuccessful = func(err error) bool {
		// caller cancellation says nothing about backend health
		return err == nil || errors.Is(err, context.Canceled)
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.WithFields(logrus.Fields{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("cache store breaker state changed")
	}

	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}, nil
}

// State reports the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		data, found, err := b.next.Get(ctx, key)
		return getResult{data: data, found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(getResult)
	return r.data, r.found, nil
}

func (b *BreakerStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.SetWithTTL(ctx, key, value, ttl)
	})
	return err
}

func (b *BreakerStore) DeleteAll(ctx context.Context, keys ...string) (int, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.DeleteAll(ctx, keys...)
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

func (b *BreakerStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.KeysMatching(ctx, pattern)
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// Ping bypasses the breaker so health checks always reach the backend.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *BreakerStore) Info(ctx context.Context) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Info(ctx)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
