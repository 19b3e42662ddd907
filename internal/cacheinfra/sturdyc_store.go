package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the storage settings for the sturdyc backed entry store.
type Config struct {
	// Capacity is the maximum number of entries kept across all shards.
	// Must be greater than or equal to NumShards.
	Capacity int

	// NumShards is the number of independently locked shards. Default: 64
	NumShards int

	// Retention is how long an entry is kept after its last write before
	// sturdyc drops it. It bounds memory only; freshness is decided by the
	// caller, not by this value.
	Retention time.Duration

	// EvictionPercentage is the share of a full shard evicted to make room.
	// Must be between 1-100. Default: 10
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero keeps the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns the storage defaults used by the console cache.
func DefaultConfig() Config {
	return Config{
		Capacity:           4096,
		NumShards:          64,
		Retention:          24 * time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions maps the optional settings to sturdyc options. Capacity,
// NumShards, Retention and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.Capacity < c.NumShards {
		return &ConfigError{Field: "Capacity", Message: "must be at least NumShards"}
	}
	if c.Retention <= 0 {
		return &ConfigError{Field: "Retention", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
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

// Store is a keyed, sharded storage for cache entries. It does no fetching of
// its own: the caller decides staleness and writes results back with Set.
type Store[T any] struct {
	client *sturdyc.Client[T]
}

// NewStore validates cfg and creates the sturdyc client backing the store.
func NewStore[T any](cfg Config) (*Store[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[T](
		cfg.Capacity,
		cfg.NumShards,
		cfg.Retention,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &Store[T]{client: client}, nil
}

// Get returns the value stored for key, if it is still retained.
func (s *Store[T]) Get(key string) (T, bool) {
	return s.client.Get(key)
}

// Set stores value under key, refreshing its retention window.
func (s *Store[T]) Set(key string, value T) {
	s.client.Set(key, value)
}

// Delete removes a single key.
func (s *Store[T]) Delete(key string) {
	s.client.Delete(key)
}

// Keys lists every retained key.
func (s *Store[T]) Keys() []string {
	return s.client.ScanKeys()
}

// Len returns the number of retained entries.
func (s *Store[T]) Len() int {
	return s.client.Size()
}
