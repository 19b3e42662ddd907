package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/internal/logging"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clinic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, cache.DefaultConfig(), cfg.CacheConfig())
	assert.Equal(t, time.Hour, cfg.Cache.FreshFor)
	assert.Equal(t, apiclient.DefaultTimeout, cfg.API.Timeout)
	assert.Equal(t, clinic.DefaultPageSize, cfg.Console.PageSize)
	assert.Empty(t, cfg.Services.Map())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
  format: json
cache:
  fresh_for: 90s
api:
  base_url: http://api.clinic.test
  timeout: 5s
services:
  doctor: http://doctors.clinic.test
console:
  page_size: 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Cache.FreshFor)
	assert.Equal(t, cache.DefaultConfig().Capacity, cfg.Cache.Capacity, "unset keys keep defaults")
	assert.Equal(t, "http://api.clinic.test", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, map[string]string{clinic.ServiceDoctor: "http://doctors.clinic.test"}, cfg.Services.Map())
	assert.Equal(t, 20, cfg.Console.PageSize)

	lc := cfg.LoggingConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
api:
  base_url: http://file.clinic.test
cache:
  fresh_for: 90s
`)
	t.Setenv("CLINIC_API_URL", "http://env.clinic.test")
	t.Setenv("CLINIC_API_TOKEN", "secret")
	t.Setenv("CACHE_FRESH_FOR", "2m")
	t.Setenv("SYMPTOM_URL", "http://symptoms.clinic.test")
	t.Setenv("OTEL_ENDPOINT", "http://collector:4318")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.clinic.test", cfg.API.BaseURL)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, 2*time.Minute, cfg.Cache.FreshFor)
	assert.Equal(t, "http://symptoms.clinic.test", cfg.Services.Map()[clinic.ServiceSymptom])
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
			wantErr: ErrFileNotFound,
		},
		{
			name:    "bad yaml",
			path:    func(t *testing.T) string { return writeFile(t, "cache: [\n") },
			wantErr: ErrInvalidYAML,
		},
		{
			name: "bad duration",
			path: func(t *testing.T) string { return "" },
			env:  map[string]string{"CACHE_FRESH_FOR": "soon"},
		},
		{
			name: "fresh window too short",
			path: func(t *testing.T) string { return writeFile(t, "cache:\n  fresh_for: 1ms\n") },
		},
		{
			name: "unknown log format",
			path: func(t *testing.T) string { return writeFile(t, "log:\n  format: xml\n") },
		},
		{
			name: "invalid base url",
			path: func(t *testing.T) string { return writeFile(t, "api:\n  base_url: \"not a url\"\n") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.path(t))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ClientOptions(t *testing.T) {
	cfg := Default()
	cfg.API.Token = "secret"
	cfg.Services.Patient = "http://patients.clinic.test"

	c := apiclient.New("http://api.clinic.test", cfg.ClientOptions()...)
	assert.Equal(t, "http://patients.clinic.test", c.ServiceURL(clinic.ServicePatient))
	assert.Equal(t, "http://api.clinic.test", c.ServiceURL(clinic.ServiceDoctor))
}
