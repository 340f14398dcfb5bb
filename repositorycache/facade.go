package repositorycache

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/phucquyet1202/EtaxiBE/cache"
)

// ErrNoDatabase is returned by RunInTx when the facade has no database.
var ErrNoDatabase = goerrors.New("repositorycache: no database configured", goerrors.CategoryInternal)

// Facade is the single entry point to every cached resource. Models are
// registered by name and retrieved with For.
type Facade struct {
	cache  cache.CacheService
	db     *bun.DB
	models *xsync.MapOf[string, any]
	logger logrus.FieldLogger
}

// FacadeOption configures a Facade.
type FacadeOption func(*Facade)

// WithLogger sets the logger handed to registered models.
func WithLogger(logger logrus.FieldLogger) FacadeOption {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFacade creates a facade over svc. db may be nil when transactions and
// the raw client are not needed.
func NewFacade(svc cache.CacheService, db *bun.DB, opts ...FacadeOption) *Facade {
	f := &Facade{
		cache:  svc,
		db:     db,
		models: xsync.NewMapOf[string, any](),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register decorates model with caching and stores it under name.
func Register[T any](f *Facade, name string, model Model[T]) (*CachedModel[T], error) {
	if name == "" {
		return nil, goerrors.New("resource name is required", goerrors.CategoryBadInput)
	}
	if model == nil {
		return nil, goerrors.New(fmt.Sprintf("resource %q has no model", name), goerrors.CategoryBadInput)
	}

	cached := New(name, model, f.cache).withLogger(f.logger)
	if _, loaded := f.models.LoadOrStore(name, cached); loaded {
		return nil, goerrors.New(fmt.Sprintf("resource %q is already registered", name), goerrors.CategoryConflict)
	}

	f.logger.WithField("resource", name).Debug("resource registered")
	return cached, nil
}

// For returns the cached model registered under name.
func For[T any](f *Facade, name string) (*CachedModel[T], error) {
	v, ok := f.models.Load(name)
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("unknown resource %q", name), goerrors.CategoryNotFound)
	}
	cached, ok := v.(*CachedModel[T])
	if !ok {
		var want *CachedModel[T]
		return nil, goerrors.New(fmt.Sprintf("resource %q is %T, not %T", name, v, want), goerrors.CategoryBadInput)
	}
	return cached, nil
}

// Resources lists the registered resource names in order.
func (f *Facade) Resources() []string {
	var names []string
	f.models.Range(func(name string, _ any) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// InvalidateModel removes the cached reads of resource name, or the keys
// matching pattern when it is set. name need not be registered with f, since
// the key space is shared with other processes.
func (f *Facade) InvalidateModel(ctx context.Context, name, pattern string) int {
	return f.cache.Invalidate(ctx, name, pattern)
}

// InvalidateAll removes every cached read.
func (f *Facade) InvalidateAll(ctx context.Context) int {
	return f.cache.InvalidateAll(ctx)
}

func (f *Facade) CacheStats() cache.Stats {
	return f.cache.Stats()
}

func (f *Facade) ResetCacheStats() {
	f.cache.ResetStats()
}

func (f *Facade) CacheInfo(ctx context.Context) (cache.Info, bool) {
	return f.cache.Info(ctx)
}

func (f *Facade) HealthCheck(ctx context.Context) bool {
	return f.cache.HealthCheck(ctx)
}

// Cache returns the underlying cache service.
func (f *Facade) Cache() cache.CacheService {
	return f.cache
}

// DB returns the raw database handle. Queries run through it bypass the cache
// and do not invalidate it.
func (f *Facade) DB() *bun.DB {
	return f.db
}

// RunInTx runs fn in a transaction. Reads made through cached models with
// the ctx passed to fn skip the cache, and invalidations caused by writes are
// applied only after a successful commit. A nested call joins the outer
// transaction.
func (f *Facade) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	if scope := txScopeFrom(ctx); scope != nil {
		return fn(ctx, scope.tx)
	}
	if f.db == nil {
		return ErrNoDatabase
	}

	scope := &txScope{}
	err := f.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		scope.tx = tx
		return fn(withTxScope(ctx, scope), tx)
	})
	pending := scope.drain()
	if err != nil {
		if len(pending) > 0 {
			f.logger.WithError(err).WithField("dropped", len(pending)).Debug("transaction failed, skipping invalidation")
		}
		return err
	}

	for _, p := range pending {
		f.cache.Invalidate(ctx, p.resource, p.pattern)
	}
	return nil
}
