// Package cache provides the stale-while-revalidate cache behind the console's
// resource views, together with the page and key types its callers share.
//
// # Overview
//
// The package exports:
//
//   - SWR: a keyed cache that serves what it holds and revalidates in the background
//   - BuildKey / Params: the deterministic key for one page of a resource
//   - Page[T]: the normalised shape of a server-paginated collection
//   - Metrics: observability hooks, NoopMetrics by default
//
// # Basic Usage
//
//	c, err := cache.New(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	key := cache.BuildKey("get-doctors", cache.Params{Page: 1, Limit: 10})
//	entry := c.Get(ctx, key, fetchDoctors, nil)
//	// entry.Data is whatever the cache held; a fetch may now be running
//
//	// after a mutation, wait for fresh data
//	if err := c.Invalidate(ctx, key, nil); err != nil {
//		log.Printf("refetch failed: %v", err)
//	}
//
// # Freshness
//
// Entries created from a seed value count as fresh for Config.FreshFor after
// their last successful fetch. Entries created without a seed are revalidated
// on every Get. Freshness only decides when Get revalidates; Invalidate
// always fetches.
//
// # Ordering
//
// Each request carries a per-key sequence number. When a response arrives
// for a request that is no longer the latest one issued for its key, it is
// discarded, so the entry always reflects the latest request regardless of
// completion order.
//
// # Failures
//
// A failed fetch records its error on the entry and keeps the previous data,
// so views keep rendering the last good page.
//
// # Storage
//
// Records live in a sturdyc client (see internal/cacheinfra). Capacity,
// NumShards, EvictionPercentage and Retention bound memory usage only.
package cache
