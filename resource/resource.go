// Package resource exposes one cached, paginated collection per clinic
// entity, plus the create and modify mutations that go with it.
package resource

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/internal/logging"
)

// State is what a view sees of the current page.
type State[T any] struct {
	// Value is never nil; before any data arrives it is an empty page.
	Value cache.Page[T]
	// Loading is true while the first request for the key runs and nothing
	// has been fetched or failed yet.
	Loading bool
	// Validating is true whenever a request for the key is in flight.
	Validating bool
	Err        error
	Key        string
	Params     cache.Params
	Version    uint64
	// Loaded reports whether Value holds fetched or seeded data.
	Loaded bool
}

// Option configures a Resource.
type Option[T any] func(*Resource[T])

// WithSeed serves page for params until it is revalidated. Only the key
// built from params is seeded; it stays fresh for the cache's FreshFor.
func WithSeed[T any](page cache.Page[T], params cache.Params) Option[T] {
	return func(r *Resource[T]) {
		seed := page
		r.seed = &seed
		r.seedKey = params.Key(r.path)
	}
}

// WithLogger sets the logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(r *Resource[T]) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithName sets the entity name used in log records.
func WithName[T any](name string) Option[T] {
	return func(r *Resource[T]) {
		r.name = name
	}
}

// Resource is a cached, paginated view over one collection.
//
// A resource is bound to one key at a time. Watchers receive the states of
// the bound key only, and never a state older than one already delivered
// for that key.
type Resource[T any] struct {
	name    string
	path    string
	cache   *cache.SWR
	fetch   cache.FetchFn
	seed    *cache.Page[T]
	seedKey string
	logger  *slog.Logger

	mu          sync.Mutex
	params      cache.Params
	key         string
	emittedKey  string
	emittedVers uint64

	watchers  *xsync.MapOf[uint64, func(State[T])]
	nextWatch atomic.Uint64
	unsub     func()
}

// New creates a resource for the collection at path, loading pages with fetch.
func New[T any](c *cache.SWR, path string, fetch Fetcher[T], opts ...Option[T]) *Resource[T] {
	r := &Resource[T]{
		name:     path,
		path:     path,
		cache:    c,
		fetch:    fetch.cacheFetch(),
		logger:   logging.Nop(),
		watchers: xsync.NewMapOf[uint64, func(State[T])](),
		params:   cache.Params{Page: 1, Limit: clinic.DefaultPageSize},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.key = r.params.Key(path)
	r.unsub = c.Subscribe(r.onEntry)
	return r
}

// ForEntity creates the resource for e, fetching through client.
func ForEntity[T any](c *cache.SWR, client *apiclient.Client, e clinic.Entity, opts ...Option[T]) *Resource[T] {
	opts = append([]Option[T]{WithName[T](e.Name)}, opts...)
	r := New(c, e.ListPath, HTTPFetcher[T](client, e.Service), opts...)
	r.Bind(cache.Params{Page: 1, Limit: e.PageSize})
	return r
}

// Path returns the collection path.
func (r *Resource[T]) Path() string { return r.path }

// Name returns the entity name.
func (r *Resource[T]) Name() string { return r.name }

// Key returns the bound cache key.
func (r *Resource[T]) Key() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key
}

// Params returns the bound request parameters.
func (r *Resource[T]) Params() cache.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// Bind points the resource at the page described by p without fetching.
func (r *Resource[T]) Bind(p cache.Params) string {
	p.Search = strings.TrimSpace(p.Search)
	key := p.Key(r.path)

	r.mu.Lock()
	r.params = p
	r.key = key
	r.mu.Unlock()
	return key
}

// Load reads the bound key from the cache, starting a revalidation when it
// is stale, and returns the state immediately.
func (r *Resource[T]) Load(ctx context.Context) State[T] {
	r.mu.Lock()
	key, params := r.key, r.params
	r.mu.Unlock()

	var seed any
	if r.seed != nil && key == r.seedKey {
		seed = *r.seed
	}
	st := r.toState(r.cache.Get(ctx, key, r.fetch, seed), params)
	r.emit(st)
	return st
}

// Refresh loads the bound key like Load, discarding the returned state.
func (r *Resource[T]) Refresh(ctx context.Context) {
	r.Load(ctx)
}

// Use binds the given page, size and search term and loads it.
func (r *Resource[T]) Use(ctx context.Context, page, pageSize int, search string) State[T] {
	r.Bind(cache.Params{Page: page, Limit: pageSize, Search: search})
	return r.Load(ctx)
}

// State returns the current state of the bound key without fetching.
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	key, params := r.key, r.params
	r.mu.Unlock()

	e, ok := r.cache.Peek(key)
	if !ok {
		return State[T]{Value: cache.EmptyPage[T](), Key: key, Params: params}
	}
	return r.toState(e, params)
}

// Value returns the current page, an empty one when nothing is loaded.
func (r *Resource[T]) Value() cache.Page[T] {
	return r.State().Value
}

// Refetch forces a new request. With a non-blank query it targets the key for
// the bound page and size filtered by query; otherwise the bound key. It
// waits for the response; failures are reported through State.Err.
func (r *Resource[T]) Refetch(ctx context.Context, query ...string) {
	r.mu.Lock()
	key, params := r.key, r.params
	r.mu.Unlock()

	if len(query) > 0 {
		if q := strings.TrimSpace(query[0]); q != "" {
			key = params.WithSearch(q).Key(r.path)
		}
	}

	if err := r.cache.Invalidate(ctx, key, r.fetch); err != nil {
		r.logger.Debug("refetch failed", "resource", r.name, "key", key, "error", err)
	}
}

// Watch registers fn for every state of the bound key. The returned function
// removes it.
func (r *Resource[T]) Watch(fn func(State[T])) (cancel func()) {
	id := r.nextWatch.Add(1)
	r.watchers.Store(id, fn)
	return func() { r.watchers.Delete(id) }
}

// Close detaches the resource from the cache.
func (r *Resource[T]) Close() {
	if r.unsub != nil {
		r.unsub()
	}
	r.watchers.Clear()
}

func (r *Resource[T]) onEntry(e cache.Entry) {
	r.mu.Lock()
	key, params := r.key, r.params
	r.mu.Unlock()

	if e.Key != key {
		return
	}
	r.emit(r.toState(e, params))
}

func (r *Resource[T]) emit(st State[T]) {
	r.mu.Lock()
	if st.Key != r.key {
		r.mu.Unlock()
		return
	}
	if st.Key == r.emittedKey && st.Version < r.emittedVers {
		r.mu.Unlock()
		return
	}
	r.emittedKey = st.Key
	r.emittedVers = st.Version
	r.mu.Unlock()

	r.watchers.Range(func(_ uint64, fn func(State[T])) bool {
		fn(st)
		return true
	})
}

func (r *Resource[T]) toState(e cache.Entry, params cache.Params) State[T] {
	st := State[T]{
		Value:      cache.EmptyPage[T](),
		Validating: e.Validating,
		Err:        e.Err,
		Key:        e.Key,
		Params:     params,
		Version:    e.Version,
	}
	if page, ok := e.Data.(cache.Page[T]); ok {
		if page.Results == nil {
			page.Results = []T{}
		}
		st.Value = page
		st.Loaded = true
	}
	st.Loading = e.Validating && !st.Loaded && e.Err == nil
	return st
}
