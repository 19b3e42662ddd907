package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-clinic-console/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	Retention          time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration

	// FreshFor is how long a seeded entry is served without revalidation.
	// Unseeded entries are revalidated on every access regardless.
	FreshFor time.Duration
}

// DefaultFreshFor is the revalidation interval for seeded pages.
const DefaultFreshFor = time.Hour

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.FreshFor = DefaultFreshFor
	return cfg
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.Retention, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.FreshFor, validation.Required, validation.Min(time.Second)),
	)
	if err != nil {
		return err
	}
	return c.toInternal().Validate()
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		Retention:          c.Retention,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		Retention:          cfg.Retention,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
