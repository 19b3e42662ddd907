package cache

import (
	"net/url"
	"strconv"
	"strings"
)

// Params are the request components of a cache key besides the resource path.
type Params struct {
	Page   int
	Limit  int
	Search string
}

// BuildKey derives the cache key for one page of a resource:
//
//	path?page=N&limit=M[&search=Q]
//
// The search term is trimmed and query-escaped; a blank term is omitted.
// The result doubles as the request URI relative to the service base URL.
func BuildKey(path string, p Params) string {
	var b strings.Builder
	b.Grow(len(path) + len(p.Search) + 24)
	b.WriteString(path)
	b.WriteString("?page=")
	b.WriteString(strconv.Itoa(p.Page))
	b.WriteString("&limit=")
	b.WriteString(strconv.Itoa(p.Limit))
	if q := strings.TrimSpace(p.Search); q != "" {
		b.WriteString("&search=")
		b.WriteString(url.QueryEscape(q))
	}
	return b.String()
}

// Key is a shorthand for BuildKey(path, p).
func (p Params) Key(path string) string {
	return BuildKey(path, p)
}

// WithSearch returns a copy of p using query as the search term.
func (p Params) WithSearch(query string) Params {
	p.Search = query
	return p
}
