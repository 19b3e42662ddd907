package di

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/config"
	"github.com/goliatone/go-clinic-console/internal/logging"
)

func TestNewContainer(t *testing.T) {
	cfg := config.Default()
	cfg.API.BaseURL = "http://api.clinic.test"
	cfg.Services.Doctor = "http://doctors.clinic.test"
	cfg.Cache.Capacity = 1000
	cfg.Cache.NumShards = 16
	cfg.Cache.FreshFor = 5 * time.Minute

	container, err := NewContainer(cfg, WithLogger(logging.Nop()))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.Cache() == nil || container.Client() == nil || container.Store() == nil {
		t.Fatal("container should wire cache, client and store")
	}
	if got := container.Cache().Config().FreshFor; got != 5*time.Minute {
		t.Errorf("expected FreshFor 5m, got %v", got)
	}
	if got := container.Client().ServiceURL(clinic.ServiceDoctor); got != "http://doctors.clinic.test" {
		t.Errorf("expected doctor service URL, got %q", got)
	}
	if got := container.Client().ServiceURL(clinic.ServiceSymptom); got != "http://api.clinic.test" {
		t.Errorf("expected base URL fallback, got %q", got)
	}

	entities := container.Store().Entities()
	if len(entities) != len(clinic.Entities()) {
		t.Errorf("expected %d slices, got %v", len(clinic.Entities()), entities)
	}
	if len(container.Pages().All()) != len(clinic.Entities()) {
		t.Errorf("expected a page per entity")
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults("http://api.clinic.test")
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if container.Config().Console.PageSize != clinic.DefaultPageSize {
		t.Errorf("expected default page size %d, got %d", clinic.DefaultPageSize, container.Config().Console.PageSize)
	}
	if container.Logger() == nil {
		t.Error("expected a logger built from the configuration")
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero capacity", func(c *config.Config) { c.Cache.Capacity = 0 }},
		{"short fresh window", func(c *config.Config) { c.Cache.FreshFor = time.Millisecond }},
		{"zero page size", func(c *config.Config) { c.Console.PageSize = 0 }},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if _, err := NewContainer(cfg); err == nil {
				t.Fatal("expected an error for invalid configuration")
			}
		})
	}
}

func TestContainer_ClientOptions(t *testing.T) {
	container, err := NewContainerWithDefaults("http://api.clinic.test",
		WithClientOptions(apiclient.WithService(clinic.ServicePatient, "http://patients.clinic.test")),
	)
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if got := container.Client().ServiceURL(clinic.ServicePatient); got != "http://patients.clinic.test" {
		t.Errorf("expected patient service URL, got %q", got)
	}
}

func TestContainer_Close(t *testing.T) {
	container, err := NewContainerWithDefaults("http://api.clinic.test")
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	if err := container.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := container.Cache().Invalidate(context.Background(), "k", nil); err == nil {
		t.Error("expected closed cache to reject requests")
	}
}
