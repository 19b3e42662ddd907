// Package console wires one entity view: resource, pagination controller,
// store synchronizer, grid and mutations.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/grid"
	"github.com/goliatone/go-clinic-console/internal/logging"
	"github.com/goliatone/go-clinic-console/pagination"
	"github.com/goliatone/go-clinic-console/resource"
	"github.com/goliatone/go-clinic-console/store"
)

// Deps are the shared components every page uses.
type Deps struct {
	Cache  *cache.SWR
	Client *apiclient.Client
	Store  *store.Store
	Logger *slog.Logger
}

// Page is the view of one entity. T is the record type, P the payload type
// of its create and modify requests.
type Page[T clinic.Identifiable, P any] struct {
	Entity     clinic.Entity
	Resource   *resource.Resource[T]
	Controller *pagination.Controller
	Slice      *store.Slice[T]
	Grid       *grid.View[T]
	Create     *resource.Mutation[P]
	Modify     *resource.Mutation[P]

	cache  *cache.SWR
	sync   *store.Synchronizer[T]
	follow func()
	logger *slog.Logger
}

// NewPage builds the page of e and registers its slice in d.Store.
func NewPage[T clinic.Identifiable, P any](d Deps, e clinic.Entity, columns []grid.Column[T], opts ...resource.Option[T]) (*Page[T, P], error) {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("entity", e.Name)

	opts = append(opts, resource.WithLogger[T](logger))
	r := resource.ForEntity(d.Cache, d.Client, e, opts...)

	ctrl, err := pagination.New(r,
		pagination.WithPageSize(e.PageSize),
		pagination.WithPageSizeOptions(e.PageSizeOptions...),
		pagination.WithLogger(logger),
	)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("console: %s controller: %w", e.Name, err)
	}

	slice, err := store.Register[T](d.Store, e.Name)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("console: %s slice: %w", e.Name, err)
	}

	title := cases.Title(language.English).String(e.Plural())
	return &Page[T, P]{
		Entity:     e,
		Resource:   r,
		Controller: ctrl,
		Slice:      slice,
		Grid:       grid.New(title, slice, columns, ctrl),
		Create:     resource.CreateFor[P](d.Client, e, resource.WithMutationLogger(logger)),
		Modify:     resource.ModifyFor[P](d.Client, e, resource.WithMutationLogger(logger)),
		cache:      d.Cache,
		sync:       store.NewSynchronizer(d.Store, slice, store.Watcher[T](r), store.WithSyncLogger(logger)),
		logger:     logger,
	}, nil
}

// Open starts synchronising into the store and loads the current page.
func (p *Page[T, P]) Open(ctx context.Context) pagination.State {
	p.sync.Start()
	if p.follow == nil {
		p.follow = pagination.Follow[T](ctx, p.Controller, p.Resource)
	}
	return p.Controller.Open(ctx)
}

// Wait blocks until the displayed page has no request in flight.
func (p *Page[T, P]) Wait(ctx context.Context) error {
	_, err := p.cache.Await(ctx, p.Resource.Key())
	return err
}

// Submit creates (modify false) or modifies a record and, when that
// succeeds, refetches the displayed page.
func (p *Page[T, P]) Submit(ctx context.Context, payload P, modify bool) (*apiclient.Response, error) {
	m := p.Create
	if modify {
		m = p.Modify
	}
	resp, err := m.Submit(ctx, payload)
	if err != nil {
		return resp, err
	}
	p.Resource.Refetch(ctx)
	return resp, nil
}

// Name returns the entity name.
func (p *Page[T, P]) Name() string { return p.Entity.Name }

// Load opens the page and waits for the first response. It returns the
// fetch error, if any.
func (p *Page[T, P]) Load(ctx context.Context) error {
	p.Open(ctx)
	if err := p.Wait(ctx); err != nil {
		return err
	}
	return p.Resource.State().Err
}

// Paginate moves the grid to page and size and waits for the response.
func (p *Page[T, P]) Paginate(ctx context.Context, page, size int) error {
	if err := p.Grid.ChangePage(ctx, page, size); err != nil {
		return err
	}
	return p.Wait(ctx)
}

// State returns the pagination state.
func (p *Page[T, P]) State() pagination.State { return p.Controller.State() }

// Reload refetches the displayed page and returns the fetch error, if any.
func (p *Page[T, P]) Reload(ctx context.Context) error {
	p.Resource.Refetch(ctx)
	return p.Resource.State().Err
}

// Search filters the grid by query. A blank query clears the filter.
func (p *Page[T, P]) Search(ctx context.Context, query string) pagination.State {
	return p.Controller.Search(ctx, query)
}

// Render writes the grid.
func (p *Page[T, P]) Render(w io.Writer) error {
	return p.Grid.Render(w)
}

// SubmitJSON decodes raw into the payload type and submits it.
func (p *Page[T, P]) SubmitJSON(ctx context.Context, raw []byte, modify bool) (*apiclient.Response, error) {
	var payload P
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("console: %s payload: %w", p.Entity.Name, err)
	}
	return p.Submit(ctx, payload, modify)
}

// Close stops every watcher the page started.
func (p *Page[T, P]) Close() {
	if p.follow != nil {
		p.follow()
		p.follow = nil
	}
	p.sync.Stop()
	p.Resource.Close()
}
