package di

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/config"
	"github.com/goliatone/go-clinic-console/console"
	"github.com/goliatone/go-clinic-console/internal/logging"
	"github.com/goliatone/go-clinic-console/store"
)

// Container wires the shared console components: one cache, one API client,
// one store and a page per entity.
type Container struct {
	config config.Config
	logger *slog.Logger
	cache  *cache.SWR
	client *apiclient.Client
	store  *store.Store
	pages  *console.Pages
}

// Option customises a Container.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	metrics    cache.Metrics
	clientOpts []apiclient.Option
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics records cache metrics to m.
func WithMetrics(m cache.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithClientOptions appends API client options after the configured ones.
func WithClientOptions(opts ...apiclient.Option) Option {
	return func(s *settings) { s.clientOpts = append(s.clientOpts, opts...) }
}

// NewContainer builds every component from cfg.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("di: %w", err)
	}

	logger := s.logger
	if logger == nil {
		logger = logging.New(cfg.LoggingConfig())
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger)}
	if s.metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(s.metrics))
	}
	swr, err := cache.New(cfg.CacheConfig(), cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("di: %w", err)
	}

	clientOpts := append(cfg.ClientOptions(), apiclient.WithLogger(logger))
	clientOpts = append(clientOpts, s.clientOpts...)
	client := apiclient.New(cfg.API.BaseURL, clientOpts...)

	st := store.New(store.WithLogger(logger))
	c := &Container{
		config: cfg,
		logger: logger,
		cache:  swr,
		client: client,
		store:  st,
	}

	pages, err := console.NewPages(c.Deps())
	if err != nil {
		_ = swr.Close()
		return nil, fmt.Errorf("di: %w", err)
	}
	c.pages = pages
	return c, nil
}

// NewContainerWithDefaults builds a container from config.Default with
// baseURL as the API base URL.
func NewContainerWithDefaults(baseURL string, opts ...Option) (*Container, error) {
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	return NewContainer(cfg, opts...)
}

func (c *Container) Config() config.Config    { return c.config }
func (c *Container) Logger() *slog.Logger      { return c.logger }
func (c *Container) Cache() *cache.SWR         { return c.cache }
func (c *Container) Client() *apiclient.Client { return c.client }
func (c *Container) Store() *store.Store       { return c.store }
func (c *Container) Pages() *console.Pages     { return c.pages }

// Deps returns the components shared by pages.
func (c *Container) Deps() console.Deps {
	return console.Deps{
		Cache:  c.cache,
		Client: c.client,
		Store:  c.store,
		Logger: c.logger,
	}
}

// Warm loads the first page of every entity concurrently. It waits for all
// of them and returns the first failure.
func (c *Container) Warm(ctx context.Context) error {
	var g errgroup.Group
	for _, v := range c.pages.All() {
		g.Go(func() error {
			if err := v.Load(ctx); err != nil {
				return fmt.Errorf("warm %s: %w", v.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		c.logger.Warn("warm-up incomplete", "error", err)
	}
	return err
}

// Close releases the pages and the cache.
func (c *Container) Close() error {
	c.pages.Close()
	return c.cache.Close()
}
