// Package store holds the process-wide view state: one slice per entity,
// changed only through dispatched actions.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/internal/logging"
)

var (
	// ErrUnknownAction is returned by Dispatch for action types no slice handles.
	ErrUnknownAction = errors.New("store: unknown action")
	// ErrDuplicateSlice is returned when an entity is registered twice.
	ErrDuplicateSlice = errors.New("store: slice already registered")
	// ErrPayloadType is returned when an action carries the wrong payload type.
	ErrPayloadType = errors.New("store: unexpected payload type")
)

// Action is a request to change one slice.
type Action struct {
	Type    string
	Payload any
}

// ActionTypes returns the collection and loading action types of entity,
// e.g. "setDoctor" and "setDoctorLoading".
func ActionTypes(entity string) (set, loading string) {
	title := cases.Title(language.English).String(entity)
	return "set" + title, "set" + title + "Loading"
}

// SetAction replaces the collection of entity with page.
func SetAction[T any](entity string, page cache.Page[T]) Action {
	set, _ := ActionTypes(entity)
	return Action{Type: set, Payload: page}
}

// LoadingAction sets the loading flag of entity.
func LoadingAction(entity string, loading bool) Action {
	_, typ := ActionTypes(entity)
	return Action{Type: typ, Payload: loading}
}

type reducer interface {
	name() string
	reduce(a Action) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store routes actions to the slice registered for their type.
type Store struct {
	mu       sync.Mutex
	byType   *xsync.MapOf[string, reducer]
	byEntity *xsync.MapOf[string, reducer]
	logger   *slog.Logger
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		byType:   xsync.NewMapOf[string, reducer](),
		byEntity: xsync.NewMapOf[string, reducer](),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the slice of entity.
func Register[T any](s *Store, entity string) (*Slice[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEntity.Load(entity); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSlice, entity)
	}
	set, loading := ActionTypes(entity)
	sl := &Slice[T]{
		entity:      entity,
		setType:     set,
		loadingType: loading,
		subs:        xsync.NewMapOf[uint64, func(Snapshot[T])](),
	}
	s.byEntity.Store(entity, sl)
	s.byType.Store(set, sl)
	s.byType.Store(loading, sl)
	return sl, nil
}

// Lookup returns the slice registered for entity.
func Lookup[T any](s *Store, entity string) (*Slice[T], bool) {
	r, ok := s.byEntity.Load(entity)
	if !ok {
		return nil, false
	}
	sl, ok := r.(*Slice[T])
	return sl, ok
}

// Dispatch applies a to the slice handling its type.
func (s *Store) Dispatch(a Action) error {
	r, ok := s.byType.Load(a.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
	if err := r.reduce(a); err != nil {
		return err
	}
	s.logger.Debug("store action", "type", a.Type, "slice", r.name())
	return nil
}

// Entities lists the registered entity names, sorted.
func (s *Store) Entities() []string {
	var out []string
	s.byEntity.Range(func(name string, _ reducer) bool {
		out = append(out, name)
		return true
	})
	sort.Strings(out)
	return out
}

// Snapshot is a copy of a slice's state.
type Snapshot[T any] struct {
	// Collection is nil until the first collection write.
	Collection *cache.Page[T]
	Loading    bool
	// Writes counts accepted collection writes.
	Writes uint64
}

// Slice is the state of one entity: its current page and loading flag.
type Slice[T any] struct {
	entity      string
	setType     string
	loadingType string

	mu         sync.RWMutex
	collection *cache.Page[T]
	loading    bool
	writes     uint64

	subs    *xsync.MapOf[uint64, func(Snapshot[T])]
	nextSub atomic.Uint64
}

func (sl *Slice[T]) name() string { return sl.entity }

// Entity returns the entity the slice belongs to.
func (sl *Slice[T]) Entity() string { return sl.entity }

func (sl *Slice[T]) reduce(a Action) error {
	sl.mu.Lock()
	switch a.Type {
	case sl.setType:
		page, ok := a.Payload.(cache.Page[T])
		if !ok {
			sl.mu.Unlock()
			return fmt.Errorf("%w: %s got %T", ErrPayloadType, a.Type, a.Payload)
		}
		sl.collection = &page
		sl.writes++
	case sl.loadingType:
		loading, ok := a.Payload.(bool)
		if !ok {
			sl.mu.Unlock()
			return fmt.Errorf("%w: %s got %T", ErrPayloadType, a.Type, a.Payload)
		}
		sl.loading = loading
	default:
		sl.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
	snap := sl.snapshotLocked()
	sl.mu.Unlock()

	sl.subs.Range(func(_ uint64, fn func(Snapshot[T])) bool {
		fn(snap)
		return true
	})
	return nil
}

// Snapshot returns the current state.
func (sl *Slice[T]) Snapshot() Snapshot[T] {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.snapshotLocked()
}

func (sl *Slice[T]) snapshotLocked() Snapshot[T] {
	snap := Snapshot[T]{Loading: sl.loading, Writes: sl.writes}
	if sl.collection != nil {
		page := *sl.collection
		snap.Collection = &page
	}
	return snap
}

// Collection returns the current page, if one was written.
func (sl *Slice[T]) Collection() (cache.Page[T], bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	if sl.collection == nil {
		return cache.EmptyPage[T](), false
	}
	return *sl.collection, true
}

// Loading reports the loading flag.
func (sl *Slice[T]) Loading() bool {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.loading
}

// Writes returns the number of accepted collection writes.
func (sl *Slice[T]) Writes() uint64 {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.writes
}

// Subscribe registers fn for every change. The returned function removes it.
func (sl *Slice[T]) Subscribe(fn func(Snapshot[T])) (cancel func()) {
	id := sl.nextSub.Add(1)
	sl.subs.Store(id, fn)
	return func() { sl.subs.Delete(id) }
}
