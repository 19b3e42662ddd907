package resource

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
)

// Normalize maps a service envelope onto a Page. The total row count is taken
// from the first field present of count, total, totalPages*limit and
// pages*limit, falling back to the number of results. limit is the requested
// page size; a limit echoed by the service takes precedence.
func Normalize[T any](env apiclient.Envelope[T], limit int) cache.Page[T] {
	results := env.Results
	if results == nil {
		results = []T{}
	}
	if env.Limit != nil && *env.Limit > 0 {
		limit = *env.Limit
	}

	count := len(results)
	switch {
	case env.Count != nil:
		count = *env.Count
	case env.Total != nil:
		count = *env.Total
	case env.TotalPages != nil && limit > 0:
		count = *env.TotalPages * limit
	case env.Pages != nil && limit > 0:
		count = *env.Pages * limit
	}
	if count < 0 {
		count = 0
	}
	return cache.Page[T]{Results: results, Count: count}
}

// limitOf extracts the limit query parameter from a cache key.
func limitOf(key string) int {
	_, query, ok := strings.Cut(key, "?")
	if !ok {
		return 0
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(values.Get("limit"))
	return n
}
