package pagination

// Page is one page of a remote collection.
type Page[T any] struct {
	Items      []T
	Index      int  // zero-based
	Size       int  // requested page size
	Last       bool // server says no further pages exist
	TotalPages int  // 0 when the endpoint does not report it
}

// HasMore reports whether another page can be requested after this one.
func (p Page[T]) HasMore() bool {
	if p.Last {
		return false
	}
	if p.TotalPages > 0 {
		return p.Index+1 < p.TotalPages
	}
	return true
}

// NewPage builds a page from a total item count, the way list endpoints that
// report totals do.
func NewPage[T any](items []T, index, size int, total int) Page[T] {
	totalPages := PageCount(total, size)
	return Page[T]{
		Items:      items,
		Index:      index,
		Size:       size,
		Last:       index+1 >= totalPages,
		TotalPages: totalPages,
	}
}

// PageCount returns how many pages of size are needed for n items.
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	pages := n / size
	if n%size != 0 {
		pages++
	}
	return pages
}

// InRange reports whether index addresses an existing page. An unknown
// total (0) only rules out negative indexes.
func InRange(index, totalPages int) bool {
	if index < 0 {
		return false
	}
	return totalPages <= 0 || index < totalPages
}

// Slice returns the items of page index when items are paged client-side.
func Slice[T any](items []T, index, size int) []T {
	if size <= 0 || index < 0 {
		return nil
	}
	start := index * size
	if start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end]
}
