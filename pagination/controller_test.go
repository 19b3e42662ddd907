package pagination

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/resource"
)

const path = "get-doctors"

type call struct {
	op    string
	key   string
	query []string
}

type fakeSource struct {
	mu    sync.Mutex
	key   string
	calls []call
}

func (f *fakeSource) Bind(p cache.Params) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = p.Key(path)
	f.calls = append(f.calls, call{op: "bind", key: f.key})
	return f.key
}

func (f *fakeSource) Refresh(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "refresh", key: f.key})
}

func (f *fakeSource) Refetch(_ context.Context, query ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "refetch", key: f.key, query: query})
}

func (f *fakeSource) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newController(t *testing.T, opts ...Option) (*Controller, *fakeSource) {
	t.Helper()
	src := &fakeSource{}
	c, err := New(src, opts...)
	require.NoError(t, err)
	return c, src
}

func TestNew_Defaults(t *testing.T) {
	c, src := newController(t)
	assert.Equal(t, State{Page: 1, PageSize: 10}, c.State())
	assert.Equal(t, "get-doctors?page=1&limit=10", src.key)
	assert.Empty(t, c.PageSizeOptions())
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero page size", []Option{WithPageSize(0)}},
		{"negative option", []Option{WithPageSizeOptions(5, -1)}},
		{"size not offered", []Option{WithPageSize(25), WithPageSizeOptions(10, 15, 20)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeSource{}, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidPageSize)
		})
	}
}

func TestController_ResetLaw(t *testing.T) {
	c, src := newController(t, WithPageSizeOptions(5, 10, 20))
	ctx := context.Background()

	st := c.SetPage(ctx, 4)
	assert.Equal(t, 4, st.Page)
	assert.Equal(t, "get-doctors?page=4&limit=10", src.last().key)

	st, err := c.SetPageSize(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, State{Page: 1, PageSize: 20}, st)
	assert.Equal(t, call{op: "refresh", key: "get-doctors?page=1&limit=20"}, src.last())

	c.SetPage(ctx, 3)
	st = c.Search(ctx, "house")
	assert.Equal(t, 1, st.Page, "search resets the page")
	assert.Equal(t, 20, st.PageSize)
}

func TestController_SetPageClampsBelowOne(t *testing.T) {
	c, _ := newController(t)
	st := c.SetPage(context.Background(), -3)
	assert.Equal(t, 1, st.Page)
}

func TestController_SetPageSizeRejects(t *testing.T) {
	c, src := newController(t, WithPageSizeOptions(10, 15, 20))
	ctx := context.Background()
	c.SetPage(ctx, 2)
	before := len(src.calls)

	for _, n := range []int{0, -5, 7} {
		st, err := c.SetPageSize(ctx, n)
		assert.ErrorIs(t, err, ErrInvalidPageSize)
		assert.Equal(t, 2, st.Page, "rejected size keeps the state")
	}
	assert.Len(t, src.calls, before)
}

func TestController_SearchScenario(t *testing.T) {
	c, src := newController(t)
	ctx := context.Background()
	c.SetPage(ctx, 3)
	require.Equal(t, State{Page: 3, PageSize: 10}, c.State())

	st := c.Search(ctx, "  smith ")
	assert.Equal(t, State{Page: 1, PageSize: 10, Search: "smith"}, st)

	last := src.last()
	assert.Equal(t, "refetch", last.op)
	assert.Equal(t, []string{"smith"}, last.query)
	assert.True(t, strings.Contains(last.key, "search=smith"))
	assert.Equal(t, "get-doctors?page=1&limit=10&search=smith", last.key)
}

func TestController_BlankSearchClearsFilter(t *testing.T) {
	c, src := newController(t)
	ctx := context.Background()
	c.Search(ctx, "smith")

	st := c.Search(ctx, "   ")
	assert.Equal(t, "", st.Search)
	last := src.last()
	assert.Equal(t, "refetch", last.op)
	assert.Empty(t, last.query)
	assert.Equal(t, "get-doctors?page=1&limit=10", last.key)
}

func TestController_Paginate(t *testing.T) {
	c, _ := newController(t, WithPageSizeOptions(10, 15, 20))
	ctx := context.Background()

	st, err := c.Paginate(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Page)

	st, err = c.Paginate(ctx, 3, 15)
	require.NoError(t, err)
	assert.Equal(t, State{Page: 1, PageSize: 15}, st)

	_, err = c.Paginate(ctx, 1, 12)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestController_ReconcileBoundaryClamp(t *testing.T) {
	tests := []struct {
		name        string
		page, size  int
		count       int
		wantPage    int
		wantChanged bool
	}{
		{"count 7 size 10 page 5", 5, 10, 7, 1, true},
		{"empty collection", 4, 10, 0, 1, true},
		{"last page shrank", 5, 10, 42, 5, false},
		{"past shrunk end", 5, 10, 31, 4, true},
		{"page within range", 2, 10, 100, 2, false},
		{"exact boundary", 3, 10, 30, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, src := newController(t, WithPageSize(tt.size))
			ctx := context.Background()
			c.SetPage(ctx, tt.page)

			changed := c.Reconcile(ctx, tt.count)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantPage, c.State().Page)
			if changed {
				assert.Equal(t, "refresh", src.last().op)
				assert.Equal(t, cache.Params{Page: tt.wantPage, Limit: tt.size}.Key(path), src.last().key)
			}
		})
	}
}

func TestFollow_ClampsOnLoadedCount(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Capacity = 64
	cfg.NumShards = 1
	swr, err := cache.New(cfg)
	require.NoError(t, err)
	defer swr.Close()

	// seven rows exist whichever page is asked for
	fetch := func(_ context.Context, key string) (cache.Page[string], error) {
		if strings.Contains(key, "page=1&") {
			return cache.Page[string]{Results: []string{"a", "b", "c", "d", "e", "f", "g"}, Count: 7}, nil
		}
		return cache.Page[string]{Results: []string{}, Count: 7}, nil
	}
	r := resource.New[string](swr, path, fetch)
	defer r.Close()

	c, err := New(r)
	require.NoError(t, err)
	ctx := context.Background()
	cancel := Follow[string](ctx, c, r)
	defer cancel()

	c.SetPage(ctx, 5)
	_, err = swr.Await(ctx, "get-doctors?page=5&limit=10")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.State().Page == 1 }, time.Second, 5*time.Millisecond)
	_, err = swr.Await(ctx, r.Key())
	require.NoError(t, err)
	assert.Equal(t, "get-doctors?page=1&limit=10", r.Key())
	assert.Len(t, r.Value().Results, 7)
}
