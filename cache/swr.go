package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-clinic-console/internal/cacheinfra"
	"github.com/goliatone/go-clinic-console/internal/logging"
)

var (
	// ErrNoFetcher is returned when a key has to be fetched but neither the
	// caller nor an earlier Get supplied a fetch function.
	ErrNoFetcher = errors.New("cache: no fetcher registered for key")
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache: closed")
	// ErrNotCached is returned by Await for keys the cache does not hold.
	ErrNotCached = errors.New("cache: key not cached")
)

// FetchFn loads the value for key. It runs on its own goroutine and must not
// assume the caller is still waiting.
type FetchFn func(ctx context.Context, key string) (any, error)

// Entry is a snapshot of one cached key.
type Entry struct {
	Key string
	// Data is the last successfully fetched (or seeded) value. A failed fetch
	// leaves it untouched.
	Data any
	// Err is the error of the last applied fetch, nil after a success.
	Err error
	// Validating reports whether a request for the key is in flight.
	Validating bool
	FetchedAt  time.Time
	// Version increments on every applied update of the entry.
	Version uint64
	Seeded  bool
}

// HasData reports whether the entry holds a value.
func (e Entry) HasData() bool { return e.Data != nil }

// Clock abstracts time for freshness checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures an SWR cache.
type Option func(*SWR)

// WithMetrics routes cache observations to m.
func WithMetrics(m Metrics) Option {
	return func(c *SWR) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger used for fetch failures and discarded responses.
func WithLogger(l *slog.Logger) Option {
	return func(c *SWR) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk Clock) Option {
	return func(c *SWR) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// SWR is a keyed stale-while-revalidate cache.
//
// Get serves whatever the cache holds and revalidates stale keys in the
// background. For every key only the most recently issued request may update
// the entry; responses of superseded requests are dropped.
type SWR struct {
	cfg     Config
	entries *cacheinfra.Store[*record]

	// mu guards every record reachable from entries.
	mu sync.Mutex

	subs    *xsync.MapOf[uint64, func(Entry)]
	nextSub atomic.Uint64
	closed  atomic.Bool

	metrics Metrics
	logger  *slog.Logger
	clock   Clock
}

type record struct {
	key       string
	fetch     FetchFn
	data      any
	err       error
	seeded    bool
	deleted   bool
	fetchedAt time.Time
	version   uint64
	seq       uint64
	inflight  *flight
	// last is the most recently issued request, kept after it completes.
	last *flight
}

type flight struct {
	seq  uint64
	done chan struct{}
	err  error
}

func (r *record) snapshot() Entry {
	return Entry{
		Key:        r.key,
		Data:       r.data,
		Err:        r.err,
		Validating: r.inflight != nil,
		FetchedAt:  r.fetchedAt,
		Version:    r.version,
		Seeded:     r.seeded,
	}
}

// New validates cfg and creates an empty cache.
func New(cfg Config, opts ...Option) (*SWR, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid config: %w", err)
	}

	entries, err := cacheinfra.NewStore[*record](cfg.toInternal())
	if err != nil {
		return nil, fmt.Errorf("cache: create store: %w", err)
	}

	c := &SWR{
		cfg:     cfg,
		entries: entries,
		subs:    xsync.NewMapOf[uint64, func(Entry)](),
		metrics: NoopMetrics{},
		logger:  logging.Nop(),
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the configuration the cache was built with.
func (c *SWR) Config() Config { return c.cfg }

// Get returns the current snapshot for key without waiting.
//
// An absent key is created, holding seed when seed is non-nil. If the entry
// is stale and no request for it is in flight, fetch is started in the
// background; concurrent callers share that request. fetch is remembered for
// later revalidations of the key.
func (c *SWR) Get(ctx context.Context, key string, fetch FetchFn, seed any) Entry {
	if c.closed.Load() {
		return Entry{Key: key, Err: ErrClosed}
	}

	c.mu.Lock()
	now := c.clock.Now()
	rec, ok := c.entries.Get(key)
	if !ok {
		rec = &record{key: key}
		if seed != nil {
			rec.data = seed
			rec.seeded = true
			rec.fetchedAt = now
			rec.version = 1
		}
		c.entries.Set(key, rec)
	}
	if fetch != nil {
		rec.fetch = fetch
	}

	var (
		f  *flight
		fn = rec.fetch
	)
	if c.stale(rec, now) {
		c.metrics.Miss()
		if rec.inflight == nil && fn != nil {
			f = c.begin(rec)
		}
	} else {
		c.metrics.Hit()
	}
	snap := rec.snapshot()
	c.mu.Unlock()

	c.metrics.Size(c.entries.Len())
	if f != nil {
		go c.run(context.WithoutCancel(ctx), rec, fn, f)
	}
	return snap
}

// Invalidate issues a new request for key, even if one is already in flight,
// and waits for it. Subscribers have been notified of the outcome by the time
// it returns. The returned error is the fetch error of this request.
//
// fetch may be nil when an earlier Get registered one for the key.
func (c *SWR) Invalidate(ctx context.Context, key string, fetch FetchFn) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.Lock()
	rec, ok := c.entries.Get(key)
	fn := fetch
	if fn == nil && ok {
		fn = rec.fetch
	}
	if fn == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoFetcher, key)
	}
	if !ok {
		rec = &record{key: key}
		c.entries.Set(key, rec)
	}
	rec.fetch = fn
	f := c.begin(rec)
	c.mu.Unlock()

	c.metrics.Size(c.entries.Len())
	go c.run(context.WithoutCancel(ctx), rec, fn, f)

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await blocks until the latest request issued for key has completed and its
// subscribers were notified, then returns the snapshot.
func (c *SWR) Await(ctx context.Context, key string) (Entry, error) {
	for {
		c.mu.Lock()
		rec, ok := c.entries.Get(key)
		if !ok {
			c.mu.Unlock()
			return Entry{Key: key}, ErrNotCached
		}
		f := rec.last
		snap := rec.snapshot()
		c.mu.Unlock()

		if f != nil {
			select {
			case <-f.done:
			case <-ctx.Done():
				return snap, ctx.Err()
			}
		}

		c.mu.Lock()
		rec, ok = c.entries.Get(key)
		if ok && rec.last == f {
			snap = rec.snapshot()
			c.mu.Unlock()
			return snap, nil
		}
		c.mu.Unlock()
	}
}

// Peek returns the snapshot for key without triggering a fetch.
func (c *SWR) Peek(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries.Get(key)
	if !ok {
		return Entry{}, false
	}
	return rec.snapshot(), true
}

// Delete drops key. A response still in flight for it is discarded.
func (c *SWR) Delete(key string) {
	c.mu.Lock()
	if rec, ok := c.entries.Get(key); ok {
		rec.deleted = true
		c.entries.Delete(key)
	}
	c.mu.Unlock()

	c.metrics.Size(c.entries.Len())
}

// Keys lists the keys currently held.
func (c *SWR) Keys() []string {
	return c.entries.Keys()
}

// Len returns the number of keys currently held.
func (c *SWR) Len() int {
	return c.entries.Len()
}

// Subscribe registers fn to receive every applied entry update. fn runs on the
// goroutine that completed the fetch and must not block for long. The
// returned function removes the subscription.
func (c *SWR) Subscribe(fn func(Entry)) (cancel func()) {
	id := c.nextSub.Add(1)
	c.subs.Store(id, fn)
	return func() { c.subs.Delete(id) }
}

// Close rejects further Get and Invalidate calls and drops all subscribers.
// Requests already in flight complete but notify nobody.
func (c *SWR) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.subs.Clear()
	return nil
}

func (c *SWR) stale(rec *record, now time.Time) bool {
	if !rec.seeded {
		return true
	}
	return now.Sub(rec.fetchedAt) >= c.cfg.FreshFor
}

// begin must be called with mu held.
func (c *SWR) begin(rec *record) *flight {
	rec.seq++
	f := &flight{seq: rec.seq, done: make(chan struct{})}
	rec.inflight = f
	rec.last = f
	return f
}

func (c *SWR) run(ctx context.Context, rec *record, fetch FetchFn, f *flight) {
	c.metrics.Fetch()
	data, err := c.call(ctx, rec.key, fetch)

	c.mu.Lock()
	cur, resident := c.entries.Get(rec.key)
	applied := f.seq == rec.seq && !rec.deleted && (!resident || cur == rec)
	if applied {
		if err == nil {
			rec.data = data
			rec.err = nil
			rec.fetchedAt = c.clock.Now()
		} else {
			rec.err = err
		}
		rec.version++
		rec.inflight = nil
		// an entry evicted while its request was in flight is re-admitted
		c.entries.Set(rec.key, rec)
	}
	snap := rec.snapshot()
	c.mu.Unlock()

	f.err = err
	if err != nil {
		c.metrics.FetchError()
		c.logger.Warn("cache fetch failed", "key", rec.key, "error", err)
	}
	if applied {
		c.notify(snap)
	} else {
		c.metrics.Discard()
		c.logger.Debug("cache discarded superseded response", "key", rec.key, "seq", f.seq)
	}
	close(f.done)
}

func (c *SWR) call(ctx context.Context, key string, fetch FetchFn) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache: fetch %s panicked: %v", key, r)
		}
	}()
	return fetch(ctx, key)
}

func (c *SWR) notify(e Entry) {
	if c.closed.Load() {
		return
	}
	c.subs.Range(func(_ uint64, fn func(Entry)) bool {
		fn(e)
		return true
	})
}
