package cache

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	// Hit is recorded when Get serves an entry without revalidating it.
	Hit()
	// Miss is recorded when Get finds the entry absent or stale.
	Miss()
	// Fetch is recorded for every request issued to a fetcher.
	Fetch()
	// FetchError is recorded for every failed request.
	FetchError()
	// Discard is recorded when a superseded response is dropped.
	Discard()
	// Size reports the number of resident entries.
	Size(entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()        {}
func (NoopMetrics) Miss()       {}
func (NoopMetrics) Fetch()      {}
func (NoopMetrics) FetchError() {}
func (NoopMetrics) Discard()    {}
func (NoopMetrics) Size(int)    {}

var _ Metrics = NoopMetrics{}
