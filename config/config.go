// Package config loads the console configuration.
//
// Values are resolved in order: built-in defaults, then an optional YAML
// file, then environment variables. Durations use Go syntax ("90s", "1h").
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/internal/logging"
	"github.com/goliatone/go-clinic-console/internal/telemetry"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
)

// Config is the full console configuration.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Cache     CacheConfig      `yaml:"cache"`
	API       APIConfig        `yaml:"api"`
	Services  ServiceURLs      `yaml:"services"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Console   ConsoleConfig    `yaml:"console"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"CLINIC_LOG_LEVEL"`
	Format string `yaml:"format" env:"CLINIC_LOG_FORMAT"`
}

// CacheConfig mirrors cache.Config.
type CacheConfig struct {
	Capacity           int           `yaml:"capacity" env:"CACHE_CAPACITY"`
	NumShards          int           `yaml:"num_shards" env:"CACHE_NUM_SHARDS"`
	Retention          time.Duration `yaml:"retention" env:"CACHE_RETENTION"`
	EvictionPercentage int           `yaml:"eviction_percentage" env:"CACHE_EVICTION_PERCENTAGE"`
	EvictionInterval   time.Duration `yaml:"eviction_interval" env:"CACHE_EVICTION_INTERVAL"`
	FreshFor           time.Duration `yaml:"fresh_for" env:"CACHE_FRESH_FOR"`
}

type APIConfig struct {
	// BaseURL serves every entity without its own service URL.
	BaseURL string        `yaml:"base_url" env:"CLINIC_API_URL"`
	Token   string        `yaml:"token" env:"CLINIC_API_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env:"CLINIC_API_TIMEOUT"`
}

// ServiceURLs are the per-service base URLs. Empty ones fall back to
// APIConfig.BaseURL.
type ServiceURLs struct {
	Appointment   string `yaml:"appointment" env:"APPOINTMENT_URL"`
	Speciality    string `yaml:"speciality" env:"SPECIALITY_URL"`
	Symptom       string `yaml:"symptom" env:"SYMPTOM_URL"`
	Qualification string `yaml:"qualification" env:"QUALIFICATION_URL"`
	Doctor        string `yaml:"doctor" env:"DOCTOR_URL"`
	Patient       string `yaml:"patient" env:"PATIENT_URL"`
}

// Map returns the configured URLs keyed by service name.
func (s ServiceURLs) Map() map[string]string {
	all := map[string]string{
		clinic.ServiceAppointment:   s.Appointment,
		clinic.ServiceSpeciality:    s.Speciality,
		clinic.ServiceSymptom:       s.Symptom,
		clinic.ServiceQualification: s.Qualification,
		clinic.ServiceDoctor:        s.Doctor,
		clinic.ServicePatient:       s.Patient,
	}
	out := make(map[string]string, len(all))
	for svc, url := range all {
		if url != "" {
			out[svc] = url
		}
	}
	return out
}

type ConsoleConfig struct {
	// PageSize is the default limit of the list command.
	PageSize int `yaml:"page_size" env:"CLINIC_PAGE_SIZE"`
}

// Default returns the built-in configuration.
func Default() Config {
	cc := cache.DefaultConfig()
	return Config{
		Log: LogConfig{Level: "info", Format: string(logging.FormatText)},
		Cache: CacheConfig{
			Capacity:           cc.Capacity,
			NumShards:          cc.NumShards,
			Retention:          cc.Retention,
			EvictionPercentage: cc.EvictionPercentage,
			EvictionInterval:   cc.EvictionInterval,
			FreshFor:           cc.FreshFor,
		},
		API:       APIConfig{Timeout: apiclient.DefaultTimeout},
		Telemetry: telemetry.Config{ServiceName: telemetry.DefaultServiceName},
		Console:   ConsoleConfig{PageSize: clinic.DefaultPageSize},
	}
}

// Load resolves the configuration. path may be empty to skip the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w in %s: %v", ErrInvalidYAML, path, err)
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.Errors{
		"log":     c.Log.Validate(),
		"cache":   c.CacheConfig().Validate(),
		"api":     c.API.Validate(),
		"console": c.Console.Validate(),
	}.Filter()
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In(string(logging.FormatText), string(logging.FormatJSON))),
	)
}

func (a APIConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.BaseURL, is.URL),
		validation.Field(&a.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c ConsoleConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
	)
}

// CacheConfig converts the cache section.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{
		Capacity:           c.Cache.Capacity,
		NumShards:          c.Cache.NumShards,
		Retention:          c.Cache.Retention,
		EvictionPercentage: c.Cache.EvictionPercentage,
		EvictionInterval:   c.Cache.EvictionInterval,
		FreshFor:           c.Cache.FreshFor,
	}
}

// LoggingConfig converts the log section.
func (c Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Log.Level)
	lc.Format = logging.ParseFormat(c.Log.Format)
	return lc
}

// ClientOptions returns the API client options of the api and services
// sections.
func (c Config) ClientOptions() []apiclient.Option {
	opts := []apiclient.Option{apiclient.WithServices(c.Services.Map())}
	if c.API.Timeout > 0 {
		opts = append(opts, apiclient.WithTimeout(c.API.Timeout))
	}
	if c.API.Token != "" {
		opts = append(opts, apiclient.WithToken(c.API.Token))
	}
	return opts
}
