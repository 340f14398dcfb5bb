package cache

import "time"

// Defaults applied when neither the call nor the Config says otherwise.
const (
	DefaultPrefix = "cache"
	DefaultTTL    = 300 * time.Second
)

// Options configures a single cache call.
type Options struct {
	// TTL of entries written by the call. Zero means the configured default.
	TTL time.Duration

	// Prefix is the first key segment.
	Prefix string

	// Codec encodes values on write and decodes them on hit.
	Codec Codec

	// ExtraKey, when set, replaces the argument digest in the key. Use it when
	// the arguments do not represent the identity of the result.
	ExtraKey string

	// Enabled false skips the cache entirely.
	Enabled bool
}

// Option mutates Options.
type Option func(*Options)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// WithCodec overrides the serializer/deserializer pair.
func WithCodec(codec Codec) Option {
	return func(o *Options) {
		if codec != nil {
			o.Codec = codec
		}
	}
}

// WithExtraKey overrides the argument-derived digest.
func WithExtraKey(extra string) Option {
	return func(o *Options) {
		o.ExtraKey = extra
	}
}

// WithEnabled toggles caching for the call.
func WithEnabled(enabled bool) Option {
	return func(o *Options) {
		o.Enabled = enabled
	}
}

// Disabled bypasses the cache for the call.
func Disabled() Option {
	return WithEnabled(false)
}

func (c Config) resolve(opts []Option) Options {
	o := Options{
		TTL:     c.DefaultTTL,
		Prefix:  c.Prefix,
		Codec:   JSONCodec{},
		Enabled: c.EnabledByDefault,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.TTL <= 0 {
		o.TTL = c.DefaultTTL
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Codec == nil {
		o.Codec = JSONCodec{}
	}
	return o
}
