package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/phucquyet1202/EtaxiBE/internal/cacheinfra"
)

// MemoryConfig configures the in-process store returned by NewMemoryStore.
type MemoryConfig struct {
	Capacity           int           `mapstructure:"capacity"`
	NumShards          int           `mapstructure:"num_shards"`
	MaxTTL             time.Duration `mapstructure:"max_ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval"`
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults.
func DefaultMemoryConfig() MemoryConfig {
	return memoryConfigFromInternal(cacheinfra.DefaultMemoryConfig())
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	return c.toInternal().Validate()
}

func (c MemoryConfig) toInternal() cacheinfra.MemoryConfig {
	return cacheinfra.MemoryConfig{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		MaxTTL:             c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func memoryConfigFromInternal(c cacheinfra.MemoryConfig) MemoryConfig {
	return MemoryConfig{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		MaxTTL:             c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

// NewMemoryStore returns an in-process Store for single-instance use and tests.
func NewMemoryStore(cfg MemoryConfig) (Store, error) {
	store, err := cacheinfra.NewMemoryStore(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// RedisConfig configures the Redis connection and key scanning.
type RedisConfig = cacheinfra.RedisConfig

// DefaultRedisConfig points at a local Redis on the default port.
func DefaultRedisConfig() RedisConfig {
	return cacheinfra.DefaultRedisConfig()
}

// NewRedisClient opens a Redis client for cfg. The caller owns the client.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	return cacheinfra.NewRedisClient(cfg)
}

// NewRedisStore returns a Store over an existing Redis client.
func NewRedisStore(client redis.UniversalClient) Store {
	return cacheinfra.NewRedisStore(client, cacheinfra.DefaultRedisConfig())
}

// NewRedisStoreWithConfig is NewRedisStore with explicit scan and delete
// batch sizes.
func NewRedisStoreWithConfig(client redis.UniversalClient, cfg RedisConfig) Store {
	return cacheinfra.NewRedisStore(client, cfg)
}

// BreakerConfig configures WithBreaker.
type BreakerConfig = cacheinfra.BreakerConfig

// DefaultBreakerConfig returns a disabled breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return cacheinfra.DefaultBreakerConfig()
}

// WithBreaker wraps store in a circuit breaker when cfg is enabled.
func WithBreaker(store Store, cfg BreakerConfig, logger logrus.FieldLogger) (Store, error) {
	wrapped, err := cacheinfra.NewBreakerStore(store, cfg, logger)
	if err != nil {
		return nil, err
	}
	return wrapped, nil
}
