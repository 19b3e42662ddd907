// Package grid renders a store slice as a server-paginated table.
package grid

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/pagination"
	"github.com/goliatone/go-clinic-console/store"
)

// Column renders one field of a record.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Row is one rendered record, identified by the record's ID.
type Row struct {
	ID    string
	Cells []string
}

// Pager is where page changes are sent and the current page is read from.
type Pager interface {
	State() pagination.State
	Paginate(ctx context.Context, page, size int) (pagination.State, error)
}

// View displays the collection held by a slice. It reads nothing but the
// slice and the pager state.
type View[T clinic.Identifiable] struct {
	title   string
	slice   *store.Slice[T]
	columns []Column[T]
	pager   Pager
}

// New creates a view of slice.
func New[T clinic.Identifiable](title string, slice *store.Slice[T], columns []Column[T], pager Pager) *View[T] {
	return &View[T]{title: title, slice: slice, columns: columns, pager: pager}
}

// Title returns the view title.
func (v *View[T]) Title() string { return v.title }

// Rows returns the rows of the current page.
func (v *View[T]) Rows() []Row {
	page, _ := v.slice.Collection()
	rows := make([]Row, 0, len(page.Results))
	for _, rec := range page.Results {
		cells := make([]string, len(v.columns))
		for i, col := range v.columns {
			cells[i] = col.Value(rec)
		}
		rows = append(rows, Row{ID: rec.ID(), Cells: cells})
	}
	return rows
}

// RowCount returns the total number of rows on the server.
func (v *View[T]) RowCount() int {
	page, _ := v.slice.Collection()
	return page.Count
}

// Loading reports whether the slice is loading.
func (v *View[T]) Loading() bool {
	return v.slice.Loading()
}

// ChangePage forwards a paging event to the pager.
func (v *View[T]) ChangePage(ctx context.Context, page, size int) error {
	_, err := v.pager.Paginate(ctx, page, size)
	return err
}

// Render writes the current page as a table followed by a footer line.
func (v *View[T]) Render(w io.Writer) error {
	st := v.pager.State()
	rows := v.Rows()
	count := v.RowCount()

	if v.title != "" {
		if _, err := fmt.Fprintln(w, v.title); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, 0, len(v.columns)+1)
	headers = append(headers, "ID")
	for _, col := range v.columns {
		headers = append(headers, strings.ToUpper(col.Header))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	if len(rows) == 0 {
		fmt.Fprintln(tw, "(no rows)")
	}
	for _, row := range rows {
		fmt.Fprintln(tw, row.ID+"\t"+strings.Join(row.Cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	footer := fmt.Sprintf("page %d of %d · %d rows", st.Page, cache.PageCount(count, st.PageSize), count)
	if st.Search != "" {
		footer += fmt.Sprintf(" · search %q", st.Search)
	}
	if v.Loading() {
		footer += " · loading"
	}
	_, err := fmt.Fprintln(w, footer)
	return err
}
