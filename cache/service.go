package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidResultType is returned when a fallback produces a value that
// cannot be assigned to the requested result type.
var ErrInvalidResultType = errors.New("cache: fallback result has unexpected type")

// KeyDeriver builds a cache key from a lookup and the resolved call options.
// It is responsible for producing stable keys across calls.
type KeyDeriver interface {
	DeriveKey(l Lookup, o Options) string
}

// Store is the contract a key-value backend offers the service. Get reports a
// miss as (nil, false, nil); errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteAll(ctx context.Context, keys ...string) (int, error)
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	Info(ctx context.Context) (string, error)
}

// FetchFn is the function signature the service expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Info describes the cache for diagnostics.
type Info struct {
	Stats            Stats  `json:"stats"`
	TotalKeys        int    `json:"totalKeys"`
	BackingStoreInfo string `json:"backingStoreInfo"`
}

// CacheService exposes the cache-aside operations used by data-access decorators.
// Cache-tier failures never surface as errors: reads degrade to misses and
// writes to no-ops, and both are counted in Stats.Errors.
type CacheService interface {
	// Get decodes the cached value for l into dest and reports whether it was a hit.
	Get(ctx context.Context, l Lookup, dest any, opts ...Option) bool

	// Set stores value for l and reports whether the write succeeded.
	Set(ctx context.Context, l Lookup, value any, opts ...Option) bool

	// GetOrSet fills dest from the cache or, on a miss, from fallback, storing
	// the fresh value best-effort. Only fallback errors are returned.
	GetOrSet(ctx context.Context, l Lookup, dest any, fallback func(ctx context.Context) (any, error), opts ...Option) error

	// Invalidate removes the keys matching pattern, or every key of resource
	// when pattern is empty, and returns how many were removed.
	Invalidate(ctx context.Context, resource, pattern string) int

	// InvalidateAll removes every key under the configured prefix.
	InvalidateAll(ctx context.Context) int

	Stats() Stats
	ResetStats()
	HealthCheck(ctx context.Context) bool
	Info(ctx context.Context) (Info, bool)
}

// GetOrSet is a type-safe wrapper around CacheService.GetOrSet.
func GetOrSet[T any](ctx context.Context, service CacheService, l Lookup, fetchFn FetchFn[T], opts ...Option) (T, error) {
	var out T
	err := service.GetOrSet(ctx, l, &out, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Get is a type-safe wrapper around CacheService.Get.
func Get[T any](ctx context.Context, service CacheService, l Lookup, opts ...Option) (T, bool) {
	var out T
	if !service.Get(ctx, l, &out, opts...) {
		var zero T
		return zero, false
	}
	return out, true
}
