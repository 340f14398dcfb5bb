package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/phucquyet1202/EtaxiBE/cache"

// ErrNilStore is returned by NewCacheService when no Store is supplied.
var ErrNilStore = errors.New("cache: store is required")

// service is the default CacheService backed by a Store.
type service struct {
	store  Store
	cfg    Config
	keys   KeyDeriver
	stats  *counters
	logger logrus.FieldLogger
	tracer trace.Tracer
	flight *singleflight.Group
}

// ServiceOption customises the service built by NewCacheService.
type ServiceOption func(*service)

// WithLogger sets the logger used for cache events.
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyDeriver replaces the default key derivation.
func WithKeyDeriver(keys KeyDeriver) ServiceOption {
	return func(s *service) {
		if keys != nil {
			s.keys = keys
		}
	}
}

// WithTracer sets the tracer used for cache spans.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewCacheService constructs the default cache service over store.
func NewCacheService(store Store, cfg Config, opts ...ServiceOption) (CacheService, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &service{
		store:  store,
		cfg:    cfg,
		keys:   NewDefaultKeyDeriver(),
		stats:  newCounters(),
		logger: logrus.StandardLogger(),
		tracer: otel.Tracer(tracerName),
	}
	if cfg.SingleFlight {
		s.flight = &singleflight.Group{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Get(ctx context.Context, l Lookup, dest any, opts ...Option) bool {
	o := s.cfg.resolve(opts)
	return s.get(ctx, s.keys.DeriveKey(l, o), dest, o)
}

func (s *service) Set(ctx context.Context, l Lookup, value any, opts ...Option) bool {
	o := s.cfg.resolve(opts)
	return s.set(ctx, s.keys.DeriveKey(l, o), value, o)
}

func (s *service) GetOrSet(ctx context.Context, l Lookup, dest any, fallback func(ctx context.Context) (any, error), opts ...Option) error {
	o := s.cfg.resolve(opts)
	if !o.Enabled {
		v, err := fallback(ctx)
		if err != nil {
			return err
		}
		return assign(dest, v)
	}

	key := s.keys.DeriveKey(l, o)
	ctx, span := s.tracer.Start(ctx, "cache.GetOrSet", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.resource", l.Resource),
		attribute.String("cache.operation", l.Operation),
	))
	defer span.End()

	if s.get(ctx, key, dest, o) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err := s.fill(ctx, key, fallback, o)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return assign(dest, v)
}

// fill runs fallback and stores its result. With single-flight enabled,
// concurrent misses on key share one execution. The shared load is detached
// from the caller that started it; every caller still returns as soon as its
// own ctx is done.
func (s *service) fill(ctx context.Context, key string, fallback func(ctx context.Context) (any, error), o Options) (any, error) {
	load := func(ctx context.Context) (any, error) {
		v, err := fallback(ctx)
		if err != nil {
			return nil, err
		}
		s.set(ctx, key, v, o)
		return v, nil
	}

	if s.flight == nil {
		return load(ctx)
	}

	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		return load(detached)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.WithField("key", key).Debug("cache fill shared")
		}
		return res.Val, res.Err
	}
}

func (s *service) get(ctx context.Context, key string, dest any, o Options) bool {
	data, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.stats.errors.Inc()
		s.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		return false
	}
	if !found {
		s.stats.misses.Inc()
		s.logger.WithField("key", key).Debug("cache miss")
		return false
	}
	if err := o.Codec.Unmarshal(data, dest); err != nil {
		s.stats.errors.Inc()
		s.logger.WithError(err).WithField("key", key).Warn("cache decode failed")
		return false
	}

	s.stats.hits.Inc()
	s.logger.WithField("key", key).Debug("cache hit")
	return true
}

func (s *service) set(ctx context.Context, key string, value any, o Options) bool {
	data, err := o.Codec.Marshal(value)
	if err != nil {
		s.stats.errors.Inc()
		s.logger.WithError(err).WithField("key", key).Warn("cache encode failed")
		return false
	}
	if err := s.store.SetWithTTL(ctx, key, data, o.TTL); err != nil {
		s.stats.errors.Inc()
		s.logger.WithError(err).WithField("key", key).Warn("cache set failed")
		return false
	}

	s.stats.sets.Inc()
	s.logger.WithFields(logrus.Fields{"key": key, "ttl": o.TTL}).Debug("cache set")
	return true
}

func (s *service) Invalidate(ctx context.Context, resource, pattern string) int {
	if pattern == "" {
		pattern = ResourcePattern(s.cfg.Prefix, resource)
	}
	return s.invalidate(ctx, pattern)
}

func (s *service) InvalidateAll(ctx context.Context) int {
	return s.invalidate(ctx, PrefixPattern(s.cfg.Prefix))
}

func (s *service) invalidate(ctx context.Context, pattern string) int {
	ctx, span := s.tracer.Start(ctx, "cache.Invalidate", trace.WithAttributes(
		attribute.String("cache.pattern", pattern),
	))
	defer span.End()

	keys, err := s.store.KeysMatching(ctx, pattern)
	if err != nil {
		s.stats.errors.Inc()
		span.RecordError(err)
		s.logger.WithError(err).WithField("pattern", pattern).Warn("cache invalidate failed")
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	removed, err := s.store.DeleteAll(ctx, keys...)
	if err != nil {
		s.stats.errors.Inc()
		span.RecordError(err)
		s.logger.WithError(err).WithField("pattern", pattern).Warn("cache invalidate failed")
		return 0
	}

	s.stats.deletes.Add(int64(removed))
	span.SetAttributes(attribute.Int("cache.removed", removed))
	s.logger.WithFields(logrus.Fields{"pattern": pattern, "removed": removed}).Info("cache invalidated")
	return removed
}

func (s *service) Stats() Stats {
	return s.stats.snapshot()
}

func (s *service) ResetStats() {
	s.stats.reset()
}

func (s *service) HealthCheck(ctx context.Context) bool {
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WithError(err).Error("cache health check failed")
		return false
	}
	return true
}

func (s *service) Info(ctx context.Context) (Info, bool) {
	keys, err := s.store.KeysMatching(ctx, PrefixPattern(s.cfg.Prefix))
	if err != nil {
		s.stats.errors.Inc()
		s.logger.WithError(err).Error("cache info failed")
		return Info{}, false
	}
	backing, err := s.store.Info(ctx)
	if err != nil {
		s.stats.errors.Inc()
		s.logger.WithError(err).Error("cache info failed")
		return Info{}, false
	}

	return Info{
		Stats:            s.Stats(),
		TotalKeys:        len(keys),
		BackingStoreInfo: backing,
	}, true
}

// assign stores v into the value dest points to.
func assign(dest any, v any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: destination must be a non-nil pointer, got %T", ErrInvalidResultType, dest)
	}

	target := rv.Elem()
	if v == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	val := reflect.ValueOf(v)
	if !val.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("%w: cannot assign %T to %s", ErrInvalidResultType, v, target.Type())
	}
	target.Set(val)
	return nil
}
