package cache

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var prefixPattern = regexp.MustCompile(`^[^*?\[\]\s]+$`)

// Config exposes service-wide cache configuration. Per-call Options override
// the defaults defined here.
type Config struct {
	// Prefix is the default first key segment and the namespace that
	// invalidation patterns are built under.
	Prefix string `mapstructure:"prefix"`

	// DefaultTTL applies to writes that do not set their own TTL.
	DefaultTTL time.Duration `mapstructure:"default_ttl"`

	// EnabledByDefault is the value of Options.Enabled before per-call options
	// are applied. Set it to false to make caching opt-in per call.
	EnabledByDefault bool `mapstructure:"enabled_by_default"`

	// SingleFlight collapses concurrent misses for the same key into a single
	// fallback execution within this process. The shared fallback keeps the
	// values of the first caller's ctx but not its cancellation.
	SingleFlight bool `mapstructure:"single_flight"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Prefix:           DefaultPrefix,
		DefaultTTL:       DefaultTTL,
		EnabledByDefault: true,
		SingleFlight:     false,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Prefix, validation.Required, validation.Length(1, 64), validation.Match(prefixPattern)),
		validation.Field(&c.DefaultTTL, validation.Required, validation.Min(time.Second)),
	)
}
