// Package paging slices filtered result sets into fixed-size pages and
// owns the navigation rules the album and image tables share.
package paging

// TotalPages returns ceil(totalItems / pageSize). An empty set has zero
// pages; callers that need a resting page clamp into [1, max(totalPages,1)].
func TotalPages(totalItems, pageSize int) int {
	if totalItems <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

// Window returns the items visible on a 1-based page. A page past the end
// of the data yields an empty slice; Window never auto-corrects the page.
func Window[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize <= 0 {
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ClampPage forces a requested page into [1, max(totalPages,1)].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Pager tracks the current page over a result set. Replacing the items
// (new query, new filters, refreshed data) always resets to page 1.
type Pager[T any] struct {
	items    []T
	page     int
	pageSize int
}

func NewPager[T any](pageSize int) *Pager[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &Pager[T]{page: 1, pageSize: pageSize}
}

// SetItems replaces the underlying result set and resets to the first page.
func (p *Pager[T]) SetItems(items []T) {
	p.items = items
	p.page = 1
}

func (p *Pager[T]) Page() int     { return p.page }
func (p *Pager[T]) PageSize() int { return p.pageSize }
func (p *Pager[T]) Total() int    { return len(p.items) }

func (p *Pager[T]) TotalPages() int {
	return TotalPages(len(p.items), p.pageSize)
}

// Items returns the current page's slice of the result set.
func (p *Pager[T]) Items() []T {
	return Window(p.items, p.page, p.pageSize)
}

// Next advances one page; it is a no-op on the last page.
func (p *Pager[T]) Next() {
	if p.page < p.TotalPages() {
		p.page++
	}
}

// Prev goes back one page; it is a no-op on the first page.
func (p *Pager[T]) Prev() {
	if p.page > 1 {
		p.page--
	}
}

// GoTo jumps to a page, clamped into the valid range.
func (p *Pager[T]) GoTo(page int) {
	p.page = ClampPage(page, p.TotalPages())
}
