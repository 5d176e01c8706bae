// Package config loads the service configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/auth"
	"github.com/goliatone/cinebase/internal/cacheinfra"
	"github.com/goliatone/cinebase/internal/database"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the YAML config file path.
const EnvConfigPath = "CINEBASE_CONFIG"

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Version is reported by the health endpoints. Release builds set it with
// -ldflags "-X github.com/goliatone/cinebase/internal/config.Version=...".
var Version = "1.0.0"

// devSecret is only applied in the dev environment.
const devSecret = "cinebase-development-secret-do-not-use"

// Config is the complete service configuration.
type Config struct {
	Env      string          `yaml:"env"`
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Database database.Config `yaml:"database"`
	Cache    CacheConfig     `yaml:"cache"`
	Auth     AuthConfig      `yaml:"auth"`
	CORS     CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// CacheConfig selects and tunes the cache store and the read/write paths.
type CacheConfig struct {
	Backend string                   `yaml:"backend"`
	Memory  cacheinfra.Config        `yaml:"memory"`
	Redis   RedisConfig              `yaml:"redis"`
	Breaker cacheinfra.BreakerConfig `yaml:"breaker"`
	TTL     cache.Policy             `yaml:"ttl"`

	// InvalidationRetries is the number of retries after a failed
	// invalidation, RetryBackoff the pause between them.
	InvalidationRetries int           `yaml:"invalidation_retries"`
	RetryBackoff        time.Duration `yaml:"retry_backoff"`

	// Coalesce collapses concurrent misses on one key into one load.
	Coalesce bool `yaml:"coalesce"`
}

// RedisConfig holds the redis connection and store settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	Store cacheinfra.RedisConfig `yaml:"store"`
}

type AuthConfig struct {
	Token       auth.TokenConfig `yaml:"token"`
	AdminEmails []string         `yaml:"admin_emails"`
	BcryptCost  int              `yaml:"bcrypt_cost"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Env: EnvDev,
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log:      LogConfig{Level: "info"},
		Database: database.DefaultConfig(),
		Cache: CacheConfig{
			Backend: BackendMemory,
			Memory:  cacheinfra.DefaultConfig(),
			Redis: RedisConfig{
				Addr:  "localhost:6379",
				Store: cacheinfra.DefaultRedisConfig(),
			},
			Breaker:             cacheinfra.DefaultBreakerConfig(),
			TTL:                 cache.DefaultPolicy(),
			InvalidationRetries: 2,
			RetryBackoff:        10 * time.Millisecond,
		},
		Auth: AuthConfig{
			Token: auth.TokenConfig{Issuer: "cinebase", TTL: auth.DefaultTokenTTL},
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load builds the configuration from defaults, the file named by
// CINEBASE_CONFIG when set, and CINEBASE_* environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables. Malformed values are errors
// rather than silently ignored.
func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); v != "" {
			*dst = splitList(v)
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("CINEBASE_ENV", &c.Env)
	str("CINEBASE_ADDR", &c.Server.Addr)
	duration("CINEBASE_REQUEST_TIMEOUT", &c.Server.RequestTimeout)

	str("CINEBASE_LOG_LEVEL", &c.Log.Level)
	boolean("CINEBASE_LOG_DEV", &c.Log.Development)

	str("CINEBASE_DB_DRIVER", &c.Database.Driver)
	str("CINEBASE_DB_DSN", &c.Database.DSN)
	boolean("CINEBASE_DB_DEBUG", &c.Database.Debug)

	str("CINEBASE_CACHE_BACKEND", &c.Cache.Backend)
	str("CINEBASE_CACHE_PREFIX", &c.Cache.Redis.Store.Prefix)
	boolean("CINEBASE_CACHE_COALESCE", &c.Cache.Coalesce)
	integer("CINEBASE_CACHE_INVALIDATION_RETRIES", &c.Cache.InvalidationRetries)
	str("CINEBASE_REDIS_ADDR", &c.Cache.Redis.Addr)
	str("CINEBASE_REDIS_PASSWORD", &c.Cache.Redis.Password)
	integer("CINEBASE_REDIS_DB", &c.Cache.Redis.DB)

	str("CINEBASE_JWT_SECRET", &c.Auth.Token.Secret)
	str("CINEBASE_JWT_ISSUER", &c.Auth.Token.Issuer)
	duration("CINEBASE_TOKEN_TTL", &c.Auth.Token.TTL)
	list("CINEBASE_ADMIN_EMAILS", &c.Auth.AdminEmails)

	list("CINEBASE_CORS_ORIGINS", &c.CORS.AllowedOrigins)

	return errors.Join(errs...)
}

func (c *Config) applyEnvironmentDefaults() {
	if c.Env == EnvDev && c.Auth.Token.Secret == "" {
		c.Auth.Token.Secret = devSecret
	}
	if c.Env == EnvDev && c.Log.Level == "" {
		c.Log.Level = "debug"
	}
}

// IsProduction reports whether the service runs in the prod environment.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProd
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Env, validation.Required, validation.In(EnvDev, EnvProd)),
		validation.Field(&c.Server),
		validation.Field(&c.Log),
		validation.Field(&c.Database),
		validation.Field(&c.Cache),
		validation.Field(&c.Auth),
		validation.Field(&c.CORS),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.RequestTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&s.ShutdownTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis)),
		validation.Field(&c.Memory, validation.Skip.When(c.Backend != BackendMemory)),
		validation.Field(&c.Redis, validation.Skip.When(c.Backend != BackendRedis)),
		validation.Field(&c.TTL),
		validation.Field(&c.InvalidationRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RetryBackoff, validation.Min(time.Duration(0))),
	)
}

// Validate checks the connection settings and the store settings.
func (r RedisConfig) Validate() error {
	if err := validation.Validate(r.Addr, validation.Required); err != nil {
		return validation.Errors{"addr": err}
	}
	return r.Store.Validate()
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Token),
		validation.Field(&a.AdminEmails, validation.Each(validation.Required)),
	)
}

func (c CORSConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AllowedOrigins, validation.Each(validation.Required)),
	)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
