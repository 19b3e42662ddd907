package resource

import (
	"context"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
)

// Fetcher loads the page addressed by a cache key.
type Fetcher[T any] func(ctx context.Context, key string) (cache.Page[T], error)

// HTTPFetcher fetches pages of service through client. The key is sent as the
// request URI.
func HTTPFetcher[T any](client *apiclient.Client, service string) Fetcher[T] {
	return func(ctx context.Context, key string) (cache.Page[T], error) {
		env, err := apiclient.FetchPage[T](ctx, client, service, key)
		if err != nil {
			return cache.Page[T]{}, err
		}
		return Normalize(env, limitOf(key)), nil
	}
}

func (f Fetcher[T]) cacheFetch() cache.FetchFn {
	return func(ctx context.Context, key string) (any, error) {
		page, err := f(ctx, key)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
}
