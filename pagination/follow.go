package pagination

import (
	"context"

	"github.com/goliatone/go-clinic-console/resource"
)

// Watcher is the part of a resource Follow observes.
type Watcher[T any] interface {
	Watch(fn func(resource.State[T])) (cancel func())
}

// Follow reconciles c with every loaded state of r that matches the
// controller's current page, so the view never sits past the last page.
func Follow[T any](ctx context.Context, c *Controller, r Watcher[T]) (cancel func()) {
	return r.Watch(func(st resource.State[T]) {
		if !st.Loaded {
			return
		}
		if st.Params != c.State().Params() {
			return
		}
		c.Reconcile(ctx, st.Value.Count)
	})
}
