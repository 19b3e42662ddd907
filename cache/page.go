package cache

// Page is one page of a server-paginated collection. Count is the total
// number of matching rows on the server, not the length of Results.
type Page[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
}

// EmptyPage returns the placeholder page used before any data arrived.
func EmptyPage[T any]() Page[T] {
	return Page[T]{Results: []T{}}
}

// Len returns the number of rows on this page.
func (p Page[T]) Len() int { return len(p.Results) }

// TotalPages returns how many pages of size limit cover Count rows.
// It never returns less than 1.
func (p Page[T]) TotalPages(limit int) int {
	return PageCount(p.Count, limit)
}

// PageCount returns ceil(count/limit), at least 1.
func PageCount(count, limit int) int {
	if limit <= 0 || count <= 0 {
		return 1
	}
	return (count + limit - 1) / limit
}
