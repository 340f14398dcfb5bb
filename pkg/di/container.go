package di

import (
	"errors"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/phucquyet1202/EtaxiBE/cache"
	"github.com/phucquyet1202/EtaxiBE/repositorycache"
)

// Container wires the cache stack from an AppConfig: the store (optionally
// behind a breaker), the cache service, the database and the facade that
// cached models are registered on.
type Container struct {
	config AppConfig
	logger logrus.FieldLogger

	redis  redis.UniversalClient
	store  cache.Store
	cache  cache.CacheService
	db     *bun.DB
	facade *repositorycache.Facade

	closers []func() error
}

// Option customises a Container before it is built.
type Option func(*Container)

// WithLogger replaces the logger built from AppConfig.LogLevel.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithRedisClient uses client instead of dialling AppConfig.Redis. The
// container does not close it.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Container) {
		c.redis = client
	}
}

// WithDB uses db instead of opening AppConfig.DB. The container does not
// close it.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// NewContainer validates config and builds every component it describes.
func NewContainer(config AppConfig, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{config: config}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = newLogger(config.LogLevel)
	}

	if err := c.build(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithDefaults builds an in-memory container without a database.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultAppConfig())
}

func (c *Container) build() error {
	store, err := c.newStore()
	if err != nil {
		return err
	}

	store, err = cache.WithBreaker(store, c.config.Breaker, c.logger)
	if err != nil {
		return err
	}
	c.store = store

	c.cache, err = cache.NewCacheService(store, c.config.Cache, cache.WithLogger(c.logger))
	if err != nil {
		return err
	}

	if c.db == nil {
		db, err := OpenDB(c.config.DB)
		if err != nil {
			return err
		}
		if db != nil {
			c.db = db
			c.closers = append(c.closers, db.Close)
		}
	}

	c.facade = repositorycache.NewFacade(c.cache, c.db, repositorycache.WithLogger(c.logger))
	c.logger.WithFields(logrus.Fields{
		"backend": c.config.Backend,
		"prefix":  c.config.Cache.Prefix,
		"db":      c.config.DB.Driver,
	}).Info("cache container ready")
	return nil
}

func (c *Container) newStore() (cache.Store, error) {
	switch c.config.Backend {
	case BackendRedis:
		if c.redis == nil {
			client, err := cache.NewRedisClient(c.config.Redis)
			if err != nil {
				return nil, fmt.Errorf("redis client: %w", err)
			}
			c.redis = client
			c.closers = append(c.closers, client.Close)
		}
		return cache.NewRedisStoreWithConfig(c.redis, c.config.Redis), nil
	case BackendMemory:
		return cache.NewMemoryStore(c.config.Memory)
	}
	return nil, fmt.Errorf("unknown cache backend %q", c.config.Backend)
}

func newLogger(level string) logrus.FieldLogger {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// Config returns the configuration the container was built from.
func (c *Container) Config() AppConfig {
	return c.config
}

func (c *Container) Logger() logrus.FieldLogger {
	return c.logger
}

// CacheService returns the shared cache service.
func (c *Container) CacheService() cache.CacheService {
	return c.cache
}

// Store returns the store behind the cache service, breaker included.
func (c *Container) Store() cache.Store {
	return c.store
}

// Facade returns the registry cached models are registered on.
func (c *Container) Facade() *repositorycache.Facade {
	return c.facade
}

// DB returns the database, or nil when none is configured.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Close releases the clients the container opened itself.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// RegisterModel registers an existing Model under name.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
func RegisterModel[T any](c *Container, name string, model repositorycache.Model[T]) (*repositorycache.CachedModel[T], error) {
	return repositorycache.Register(c.facade, name, model)
}

// RegisterRepository adapts a go-repository-bun repository and registers it
// under name. Aggregates run against the container's database.
// Example: RegisterRepository[*Trip](container, "Trip", tripRepository)
func RegisterRepository[T any](c *Container, name string, repo repository.Repository[T], opts ...repositorycache.RepositoryOption) (*repositorycache.CachedModel[T], error) {
	var db bun.IDB
	if c.db != nil {
		db = c.db
	}
	return RegisterModel[T](c, name, repositorycache.NewRepositoryModel(name, repo, db, opts...))
}
