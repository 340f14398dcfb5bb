package di

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-viper/mapstructure/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/phucquyet1202/EtaxiBE/cache"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// EnvPrefix prefixes every environment override, e.g. CACHE_CACHE_DEFAULT_TTL.
const EnvPrefix = "CACHE"

// AppConfig is everything the container needs to build the cache stack.
type AppConfig struct {
	// Backend selects the store: "memory" or "redis".
	Backend  string              `mapstructure:"backend"`
	LogLevel string              `mapstructure:"log_level"`
	Cache    cache.Config        `mapstructure:"cache"`
	Redis    cache.RedisConfig   `mapstructure:"redis"`
	Memory   cache.MemoryConfig  `mapstructure:"memory"`
	Breaker  cache.BreakerConfig `mapstructure:"breaker"`
	DB       DBConfig            `mapstructure:"db"`
}

// DefaultAppConfig returns an in-memory setup without a database.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Backend:  BackendMemory,
		LogLevel: logrus.InfoLevel.String(),
		Cache:    cache.DefaultConfig(),
		Redis:    cache.DefaultRedisConfig(),
		Memory:   cache.DefaultMemoryConfig(),
		Breaker:  cache.DefaultBreakerConfig(),
	}
}

// Validate checks the selected backend and every nested section it uses.
func (c AppConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis)),
		validation.Field(&c.LogLevel, validation.By(validLogLevel)),
		validation.Field(&c.Cache),
		validation.Field(&c.Redis, validation.Skip.When(c.Backend != BackendRedis)),
		validation.Field(&c.Memory, validation.Skip.When(c.Backend != BackendMemory)),
		validation.Field(&c.Breaker),
		validation.Field(&c.DB),
	)
}

func validLogLevel(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := logrus.ParseLevel(s)
	return err
}

// LoadConfig reads path (YAML, optional) over the defaults, then applies
// CACHE_ prefixed environment variables. REDIS_HOST, REDIS_PORT and
// REDIS_PASSWORD are honoured without the prefix.
func LoadConfig(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v, DefaultAppConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
	} {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return AppConfig{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decodeHook keeps viper's default hooks and reads bare numbers as seconds,
// so default_ttl: 300 means five minutes. Duration strings such as "2m"
// still work.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDuration,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

var durationType = reflect.TypeOf(time.Duration(0))

func secondsToDuration(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}

	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(reflect.ValueOf(data).Uint()) * time.Second, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
	case reflect.String:
		if n, err := strconv.ParseInt(strings.TrimSpace(reflect.ValueOf(data).String()), 10, 64); err == nil {
			return time.Duration(n) * time.Second, nil
		}
	}
	return data, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d AppConfig) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.default_ttl", d.Cache.DefaultTTL)
	v.SetDefault("cache.enabled_by_default", d.Cache.EnabledByDefault)
	v.SetDefault("cache.single_flight", d.Cache.SingleFlight)

	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.scan_count", d.Redis.ScanCount)
	v.SetDefault("redis.delete_batch", d.Redis.DeleteBatch)

	v.SetDefault("memory.capacity", d.Memory.Capacity)
	v.SetDefault("memory.num_shards", d.Memory.NumShards)
	v.SetDefault("memory.max_ttl", d.Memory.MaxTTL)
	v.SetDefault("memory.eviction_percentage", d.Memory.EvictionPercentage)
	v.SetDefault("memory.eviction_interval", d.Memory.EvictionInterval)

	v.SetDefault("breaker.enabled", d.Breaker.Enabled)
	v.SetDefault("breaker.name", d.Breaker.Name)
	v.SetDefault("breaker.max_requests", d.Breaker.MaxRequests)
	v.SetDefault("breaker.interval", d.Breaker.Interval)
	v.SetDefault("breaker.timeout", d.Breaker.Timeout)
	v.SetDefault("breaker.consecutive_failures", d.Breaker.ConsecutiveFailures)

	v.SetDefault("db.driver", d.DB.Driver)
	v.SetDefault("db.dsn", d.DB.DSN)
	v.SetDefault("db.max_open_conns", d.DB.MaxOpenConns)
}
