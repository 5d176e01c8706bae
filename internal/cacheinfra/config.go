package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc memory store.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int `yaml:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int `yaml:"num_shards"`

	// MaxTTL bounds how long sturdyc keeps any entry. Per-key TTLs passed to
	// Set are enforced on read and must not exceed it.
	MaxTTL time.Duration `yaml:"max_ttl"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int `yaml:"eviction_percentage"`

	// EvictionInterval sets how often sturdyc sweeps expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration `yaml:"eviction_interval"`

	// Clock returns the current time. Defaults to time.Now; tests inject a
	// controllable clock to simulate TTL expiry.
	Clock func() time.Time `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		MaxTTL:             time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the Config to sturdyc options. Capacity, shards,
// TTL and eviction percentage go to sturdyc.New directly.
//
// Missing record storage and early refreshes are never enabled: the read path
// must not cache negative results, and entries are only ever written by it.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	// Prefix namespaces every key this service writes, e.g. "cinebase".
	Prefix string `yaml:"prefix"`

	// OpTimeout bounds each redis round trip. Keep it well below the database
	// timeout: a slow cache must never be slower than skipping it.
	OpTimeout time.Duration `yaml:"op_timeout"`

	// ScanCount is the COUNT hint for SCAN during prefix invalidation.
	ScanCount int64 `yaml:"scan_count"`

	// DeleteBatch caps the number of keys per DEL during prefix invalidation.
	DeleteBatch int `yaml:"delete_batch"`
}

// DefaultRedisConfig returns the redis defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:      "cinebase",
		OpTimeout:   100 * time.Millisecond,
		ScanCount:   500,
		DeleteBatch: 500,
	}
}

// Validate checks the redis settings.
func (c RedisConfig) Validate() error {
	if c.OpTimeout <= 0 {
		return &ConfigError{Field: "OpTimeout", Message: "must be greater than 0"}
	}
	if c.ScanCount <= 0 {
		return &ConfigError{Field: "ScanCount", Message: "must be greater than 0"}
	}
	if c.DeleteBatch <= 0 {
		return &ConfigError{Field: "DeleteBatch", Message: "must be greater than 0"}
	}
	return nil
}

// BreakerConfig configures the circuit breaker placed in front of a remote store.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker. Zero disables the breaker.
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// HalfOpenRequests is the number of trial requests allowed while half-open.
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         10 * time.Second,
		HalfOpenRequests:    1,
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
