package apiclient

import "context"

// Envelope is a page as the services send it. Services disagree on how the
// total is reported, so every total field is optional.
type Envelope[T any] struct {
	Results    []T  `json:"results"`
	Count      *int `json:"count,omitempty"`
	Total      *int `json:"total,omitempty"`
	TotalPages *int `json:"totalPages,omitempty"`
	Pages      *int `json:"pages,omitempty"`
	Page       *int `json:"page,omitempty"`
	Limit      *int `json:"limit,omitempty"`
}

// FetchPage retrieves one page of a collection. uri is the resource path with
// its page, limit and search query, as produced by cache.BuildKey.
func FetchPage[T any](ctx context.Context, c *Client, service, uri string) (Envelope[T], error) {
	var env Envelope[T]
	if err := c.Get(ctx, service, uri, &env); err != nil {
		return Envelope[T]{}, err
	}
	return env, nil
}

// FetchOne retrieves a single record, e.g. "get-doctor-by-id/{id}", which the
// services wrap in the same envelope as mutation responses.
func FetchOne[T any](ctx context.Context, c *Client, service, path string) (T, error) {
	var (
		zero T
		env  Response
	)
	if err := c.Get(ctx, service, path, &env); err != nil {
		return zero, err
	}
	var out T
	if len(env.Data) > 0 {
		if err := env.Decode(&out); err != nil {
			return zero, &Error{Op: "GET " + path, Message: FallbackMessage, Cause: err}
		}
		return out, nil
	}
	return zero, &Error{Op: "GET " + path, Status: env.StatusCode, Message: messageOr(env.Message)}
}
