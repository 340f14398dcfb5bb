package repositorycache

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/phucquyet1202/EtaxiBE/cache"
	"github.com/phucquyet1202/EtaxiBE/query"
)

// Operation names used as the operation segment of cache keys.
const (
	OpFindMany   = "findMany"
	OpFindFirst  = "findFirst"
	OpFindUnique = "findUnique"
	OpCount      = "count"
	OpAggregate  = "aggregate"
	OpGroupBy    = "groupBy"
)

// CachedModel decorates a Model with cache-aside reads and
// write-then-invalidate writes for a single resource.
type CachedModel[T any] struct {
	resource string
	base     Model[T]
	cache    cache.CacheService
	logger   logrus.FieldLogger
}

// New creates a CachedModel that serves resource reads from svc and falls
// back to base.
func New[T any](resource string, base Model[T], svc cache.CacheService) *CachedModel[T] {
	return &CachedModel[T]{
		resource: resource,
		base:     base,
		cache:    svc,
		logger:   logrus.StandardLogger().WithField("resource", resource),
	}
}

// Resource returns the resource name used in cache keys.
func (c *CachedModel[T]) Resource() string {
	return c.resource
}

// Base returns the undecorated model.
func (c *CachedModel[T]) Base() Model[T] {
	return c.base
}

func (c *CachedModel[T]) withLogger(logger logrus.FieldLogger) *CachedModel[T] {
	c.logger = logger.WithField("resource", c.resource)
	return c
}

func (c *CachedModel[T]) lookup(op, identity string, args any) cache.Lookup {
	return cache.Lookup{Resource: c.resource, Operation: op, Identity: identity, Args: args}
}

// bypass reports whether a read must skip the cache. Reads inside a
// transaction could observe uncommitted rows, so they never touch it.
func (c *CachedModel[T]) bypass(ctx context.Context, tx bun.IDB) bool {
	if tx != nil || cacheBypassed(ctx) {
		return true
	}
	_, inTx := TxFromContext(ctx)
	return inTx
}

// FindMany returns the records matching args, caching the result per identity.
func (c *CachedModel[T]) FindMany(ctx context.Context, identity string, args query.Args, opts ...cache.Option) ([]T, error) {
	if c.bypass(ctx, args.Tx) {
		return c.base.FindMany(ctx, args)
	}
	return cache.GetOrSet(ctx, c.cache, c.lookup(OpFindMany, identity, args), func(ctx context.Context) ([]T, error) {
		return c.base.FindMany(ctx, args)
	}, opts...)
}

// FindFirst returns the first matching record or the zero value of T.
func (c *CachedModel[T]) FindFirst(ctx context.Context, identity string, args query.Args, opts ...cache.Option) (T, error) {
	if c.bypass(ctx, args.Tx) {
		return c.base.FindFirst(ctx, args)
	}
	return cache.GetOrSet(ctx, c.cache, c.lookup(OpFindFirst, identity, args), func(ctx context.Context) (T, error) {
		return c.base.FindFirst(ctx, args)
	}, opts...)
}

// FindUnique returns the record identified by args.Where or the zero value of T.
func (c *CachedModel[T]) FindUnique(ctx context.Context, identity string, args query.Args, opts ...cache.Option) (T, error) {
	if c.bypass(ctx, args.Tx) {
		return c.base.FindUnique(ctx, args)
	}
	return cache.GetOrSet(ctx, c.cache, c.lookup(OpFindUnique, identity, args), func(ctx context.Context) (T, error) {
		return c.base.FindUnique(ctx, args)
	}, opts...)
}

// Count returns the number of records matching args.
func (c *CachedModel[T]) Count(ctx context.Context, identity string, args query.Args, opts ...cache.Option) (int, error) {
	if c.bypass(ctx, args.Tx) {
		return c.base.Count(ctx, args)
	}
	return cache.GetOrSet(ctx, c.cache, c.lookup(OpCount, identity, args), func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, args)
	}, opts...)
}

// Aggregate computes the aggregates requested in args. Numbers in a cached
// row come back as float64.
func (c *CachedModel[T]) Aggregate(ctx context.Context, identity string, args query.AggregateArgs, opts ...cache.Option) (query.Row, error) {
	if c.bypass(ctx, args.Tx) {
		return c.base.Aggregate(ctx, args)
	}
	return cache.GetOrSet(ctx, c.cache, c.lookup(OpAggregate, identity, args), func(ctx context.Context) (query.Row, error) {
		return c.base.Aggregate(ctx, args)
	}, opts...)
}

// GroupBy computes the aggregates in args for every group of args.By.
func (c *CachedModel[T]) GroupBy(ctx context.Context, identity string, args query.GroupByArgs, opts ...cache.Option) ([]query.Row, error) {
	if c.bypass(ctx, args.Tx) {
		return c.base.GroupBy(ctx, args)
	}
	return cache.GetOrSet(ctx, c.cache, c.lookup(OpGroupBy, identity, args), func(ctx context.Context) ([]query.Row, error) {
		return c.base.GroupBy(ctx, args)
	}, opts...)
}

// WriteOption configures the invalidation that follows a write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	pattern string
}

// WithInvalidatePattern replaces the default resource-wide invalidation
// pattern with a narrower glob.
func WithInvalidatePattern(pattern string) WriteOption {
	return func(o *writeOptions) {
		o.pattern = pattern
	}
}

// Create inserts record.
func (c *CachedModel[T]) Create(ctx context.Context, record T, opts ...WriteOption) (T, error) {
	result, err := c.base.Create(ctx, record)
	if err == nil {
		c.invalidate(ctx, opts)
	}
	return result, err
}

// CreateMany inserts records.
func (c *CachedModel[T]) CreateMany(ctx context.Context, records []T, opts ...WriteOption) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records)
	if err == nil {
		c.invalidate(ctx, opts)
	}
	return result, err
}

// Update persists record.
func (c *CachedModel[T]) Update(ctx context.Context, record T, opts ...WriteOption) (T, error) {
	result, err := c.base.Update(ctx, record)
	if err == nil {
		c.invalidate(ctx, opts)
	}
	return result, err
}

// UpdateMany persists records.
func (c *CachedModel[T]) UpdateMany(ctx context.Context, records []T, opts ...WriteOption) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records)
	if err == nil {
		c.invalidate(ctx, opts)
	}
	return result, err
}

// Upsert inserts or updates record.
func (c *CachedModel[T]) Upsert(ctx context.Context, record T, opts ...WriteOption) (T, error) {
	result, err := c.base.Upsert(ctx, record)
	if err == nil {
		c.invalidate(ctx, opts)
	}
	return result, err
}

// Delete removes record.
func (c *CachedModel[T]) Delete(ctx context.Context, record T, opts ...WriteOption) error {
	err := c.base.Delete(ctx, record)
	if err == nil {
		c.invalidate(ctx, opts)
	}
	return err
}

// DeleteMany removes the records matching args.
func (c *CachedModel[T]) DeleteMany(ctx context.Context, args query.Args, opts ...WriteOption) error {
	err := c.base.DeleteMany(ctx, args)
	if err == nil {
		c.invalidate(ctx, opts)
	}
	return err
}

// invalidate drops the resource's cached reads. Inside a transaction opened
// by Facade.RunInTx it is held until commit.
func (c *CachedModel[T]) invalidate(ctx context.Context, opts []WriteOption) {
	var o writeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if scope := txScopeFrom(ctx); scope != nil {
		scope.hold(c.resource, o.pattern)
		return
	}

	removed := c.cache.Invalidate(ctx, c.resource, o.pattern)
	c.logger.WithFields(logrus.Fields{"pattern": o.pattern, "removed": removed}).Debug("invalidated after write")
}
