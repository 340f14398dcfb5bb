package cacheinfra

import (
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sony/gobreaker"
	"github.com/viccon/sturdyc"
)

// MemoryConfig holds the configuration for the in-process sturdyc store.
type MemoryConfig struct {
	// Capacity defines the maximum number of entries that the store can hold.
	Capacity int `mapstructure:"capacity"`

	// NumShards determines the number of shards for concurrent access.
	NumShards int `mapstructure:"num_shards"`

	// MaxTTL bounds every entry's lifetime. Per-entry TTLs above it are clamped.
	MaxTTL time.Duration `mapstructure:"max_ttl"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the store reaches its capacity. Must be between 1-100.
	EvictionPercentage int `mapstructure:"eviction_percentage"`

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          256,
		MaxTTL:             time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

// toSturdycOptions maps the optional settings onto sturdyc options. Capacity,
// NumShards, MaxTTL and EvictionPercentage go to sturdyc.New directly.
func (c MemoryConfig) toSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// RedisConfig holds the connection and scan settings of the Redis store.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// ScanCount is the COUNT hint passed to SCAN while listing keys.
	ScanCount int64 `mapstructure:"scan_count"`

	// DeleteBatch caps the number of keys sent in one DEL.
	DeleteBatch int `mapstructure:"delete_batch"`
}

// DefaultRedisConfig returns a RedisConfig pointing at a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:        "localhost",
		Port:        6379,
		ScanCount:   100,
		DeleteBatch: 500,
	}
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DB, validation.Min(0)),
		validation.Field(&c.ScanCount, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.DeleteBatch, validation.Required, validation.Min(1)),
	)
}

// BreakerConfig configures the circuit breaker placed in front of a store.
type BreakerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`

	// MaxRequests allowed through while half-open.
	MaxRequests uint32 `mapstructure:"max_requests"`

	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration `mapstructure:"interval"`

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration `mapstructure:"timeout"`

	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// DefaultBreakerConfig returns a disabled breaker with usable thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:             false,
		Name:                "cache-store",
		MaxRequests:         1,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Validate checks if the configuration values are valid.
func (c BreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.MaxRequests, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ConsecutiveFailures, validation.Required),
	)
}

func (c BreakerConfig) settings() gobreaker.Settings {
	threshold := c.ConsecutiveFailures
	return gobreaker.Settings{
		Name:        c.Name,
		MaxRequests: c.MaxRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
}
