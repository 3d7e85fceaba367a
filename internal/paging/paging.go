// Package paging splits ordered result lists into fixed-size pages and
// tracks the page currently shown.
package paging

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 5

// Paging describes a paginated result list.
type Paging struct {
	Total     int `json:"total"`   // Number of items across all pages
	PageCount int `json:"pages"`   // ceil(Total / page size)
	Current   int `json:"current"` // Zero-based index of the shown page
}

// Paginate splits items into pages of size items, preserving order.
// The last page may be short. An empty list yields no pages.
func Paginate[T any](items []T, size int) ([][]T, Paging) {
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(items)
	pageCount := (total + size - 1) / size
	pages := make([][]T, 0, pageCount)
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		page := make([]T, end-start)
		copy(page, items[start:end])
		pages = append(pages, page)
	}

	return pages, Paging{Total: total, PageCount: pageCount}
}

// CanGoBack reports whether a previous page exists.
func (p Paging) CanGoBack() bool {
	return p.Current > 0
}

// CanGoForward reports whether a next page exists.
func (p Paging) CanGoForward() bool {
	return p.Current < p.PageCount-1
}

// Valid reports whether index addresses an existing page.
func (p Paging) Valid(index int) bool {
	return index >= 0 && index < p.PageCount
}

// GoTo returns the paging moved to index.
// Out-of-range indexes leave the paging unchanged and report false.
func (p Paging) GoTo(index int) (Paging, bool) {
	if !p.Valid(index) {
		return p, false
	}
	p.Current = index
	return p, true
}

// Back returns the index of the previous page.
func (p Paging) Back() int {
	return p.Current - 1
}

// Next returns the index of the next page.
func (p Paging) Next() int {
	return p.Current + 1
}
