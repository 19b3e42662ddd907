package store

import (
	"log/slog"
	"sync"

	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/internal/logging"
	"github.com/goliatone/go-clinic-console/resource"
)

// Watcher is the part of a resource the synchronizer observes.
type Watcher[T any] interface {
	Watch(fn func(resource.State[T])) (cancel func())
}

// keyed is implemented by sources that know the key they are bound to.
type keyed interface {
	Key() string
}

// SyncOption configures a Synchronizer.
type SyncOption func(*syncSettings)

type syncSettings struct {
	logger *slog.Logger
}

// WithSyncLogger sets the logger.
func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(s *syncSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Synchronizer copies resource states into a slice.
//
// A collection write is skipped when the incoming results share backing
// array and length with the slice's current results and the count is
// unchanged. The loading flag is raised before that decision and lowered
// after it either way.
type Synchronizer[T any] struct {
	store  *Store
	slice  *Slice[T]
	source Watcher[T]
	logger *slog.Logger

	mu          sync.Mutex
	lastKey     string
	lastVersion uint64
	cancel      func()
}

// NewSynchronizer connects source to slice. Call Start to begin observing.
func NewSynchronizer[T any](s *Store, slice *Slice[T], source Watcher[T], opts ...SyncOption) *Synchronizer[T] {
	settings := syncSettings{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Synchronizer[T]{
		store:  s,
		slice:  slice,
		source: source,
		logger: settings.logger,
	}
}

// Start subscribes to the source. Calling it twice has no effect.
func (sy *Synchronizer[T]) Start() {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	if sy.cancel != nil {
		return
	}
	sy.cancel = sy.source.Watch(func(st resource.State[T]) { sy.Sync(st) })
}

// Stop unsubscribes from the source.
func (sy *Synchronizer[T]) Stop() {
	sy.mu.Lock()
	cancel := sy.cancel
	sy.cancel = nil
	sy.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Sync applies one state and reports whether the collection was written.
// States older than one already applied for the same key are ignored, as are
// placeholder states once the slice holds a collection. When the source
// reports its bound key, states for any other key are ignored too.
func (sy *Synchronizer[T]) Sync(st resource.State[T]) bool {
	sy.mu.Lock()
	defer sy.mu.Unlock()

	if k, ok := sy.source.(keyed); ok && st.Key != k.Key() {
		sy.logger.Debug("sync skipped unbound key", "key", st.Key)
		return false
	}
	if st.Key == sy.lastKey && st.Version < sy.lastVersion {
		return false
	}
	sy.lastKey = st.Key
	sy.lastVersion = st.Version

	entity := sy.slice.Entity()
	sy.dispatch(LoadingAction(entity, true))

	written := false
	cur, ok := sy.slice.Collection()
	switch {
	case ok && !st.Loaded:
	case ok && samePage(cur, st.Value):
	default:
		written = sy.dispatch(SetAction(entity, st.Value))
	}

	sy.dispatch(LoadingAction(entity, false))
	return written
}

func (sy *Synchronizer[T]) dispatch(a Action) bool {
	if err := sy.store.Dispatch(a); err != nil {
		sy.logger.Error("store dispatch failed", "type", a.Type, "error", err)
		return false
	}
	return true
}

// samePage compares by reference: same backing array, same length, same count.
func samePage[T any](cur, next cache.Page[T]) bool {
	if cur.Count != next.Count || len(cur.Results) != len(next.Results) {
		return false
	}
	if len(next.Results) == 0 {
		return true
	}
	return &cur.Results[0] == &next.Results[0]
}
