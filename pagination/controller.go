// Package pagination keeps a grid's page, page size and search term in step
// with the resource key it displays.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/internal/logging"
)

// DefaultPageSize is used when no page size option is given.
const DefaultPageSize = 10

// ErrInvalidPageSize is returned for page sizes that are not positive or not
// among the configured options.
var ErrInvalidPageSize = errors.New("pagination: invalid page size")

// State is the pagination state of one view.
type State struct {
	Page     int
	PageSize int
	Search   string
}

// Params converts s to cache key parameters.
func (s State) Params() cache.Params {
	return cache.Params{Page: s.Page, Limit: s.PageSize, Search: s.Search}
}

// Source is the resource a controller drives.
type Source interface {
	// Bind points the source at a page without fetching.
	Bind(p cache.Params) string
	// Refresh loads the bound page, revalidating it when stale.
	Refresh(ctx context.Context)
	// Refetch forces a new request, filtered by query when non-blank.
	Refetch(ctx context.Context, query ...string)
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the initial page size.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		c.state.PageSize = n
	}
}

// WithPageSizeOptions restricts page sizes to options.
func WithPageSizeOptions(options ...int) Option {
	return func(c *Controller) {
		c.options = slices.Clone(options)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns the pagination state of one view. Every transition rebinds
// the source to the key of the new state; changing the page size or search
// term returns to page 1.
type Controller struct {
	mu      sync.Mutex
	state   State
	options []int
	source  Source
	logger  *slog.Logger
}

// New creates a controller on page 1 and binds src to it.
func New(src Source, opts ...Option) (*Controller, error) {
	c := &Controller{
		state:  State{Page: 1, PageSize: DefaultPageSize},
		source: src,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	err := validation.Errors{
		"page_size": validation.Validate(c.state.PageSize, validation.Required, validation.Min(1)),
		"page_size_options": validation.Validate(c.options,
			validation.Each(validation.Required, validation.Min(1))),
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageSize, err)
	}
	if len(c.options) > 0 && !slices.Contains(c.options, c.state.PageSize) {
		return nil, fmt.Errorf("%w: %d is not one of %v", ErrInvalidPageSize, c.state.PageSize, c.options)
	}

	src.Bind(c.state.Params())
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PageSizeOptions returns the allowed page sizes, empty when unrestricted.
func (c *Controller) PageSizeOptions() []int {
	return slices.Clone(c.options)
}

// Open loads the current page.
func (c *Controller) Open(ctx context.Context) State {
	return c.apply(ctx, func(*State) {})
}

// SetPage moves to page n; values below 1 select page 1.
func (c *Controller) SetPage(ctx context.Context, n int) State {
	if n < 1 {
		n = 1
	}
	return c.apply(ctx, func(s *State) { s.Page = n })
}

// SetPageSize changes the page size and returns to page 1.
func (c *Controller) SetPageSize(ctx context.Context, n int) (State, error) {
	if n <= 0 || (len(c.options) > 0 && !slices.Contains(c.options, n)) {
		return c.State(), fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	return c.apply(ctx, func(s *State) {
		s.PageSize = n
		s.Page = 1
	}), nil
}

// Search filters by the trimmed query, returns to page 1 and forces a new
// request. A blank query clears the filter.
func (c *Controller) Search(ctx context.Context, query string) State {
	q := strings.TrimSpace(query)

	c.mu.Lock()
	c.state.Search = q
	c.state.Page = 1
	st := c.state
	c.mu.Unlock()

	c.source.Bind(st.Params())
	if q != "" {
		c.source.Refetch(ctx, q)
	} else {
		c.source.Refetch(ctx)
	}
	c.logger.Debug("pagination search", "search", q)
	return st
}

// Paginate handles a grid paging event: a changed size resets to page 1,
// otherwise page is selected.
func (c *Controller) Paginate(ctx context.Context, page, size int) (State, error) {
	if size != c.State().PageSize {
		return c.SetPageSize(ctx, size)
	}
	return c.SetPage(ctx, page), nil
}

// Reconcile moves back to the last page that exists for count rows when the
// current page lies past it. It reports whether the page changed.
func (c *Controller) Reconcile(ctx context.Context, count int) bool {
	c.mu.Lock()
	st := c.state
	target := st.Page
	if count < st.Page*st.PageSize {
		target = max(1, cache.PageCount(count, st.PageSize))
	}
	if target == st.Page {
		c.mu.Unlock()
		return false
	}
	c.state.Page = target
	st = c.state
	c.mu.Unlock()

	c.logger.Debug("pagination clamped", "count", count, "page", target)
	c.source.Bind(st.Params())
	c.source.Refresh(ctx)
	return true
}

func (c *Controller) apply(ctx context.Context, change func(*State)) State {
	c.mu.Lock()
	change(&c.state)
	st := c.state
	c.mu.Unlock()

	c.source.Bind(st.Params())
	c.source.Refresh(ctx)
	return st
}
