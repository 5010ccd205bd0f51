package services

// DefaultPageSize is the page size of grant listings when none is given.
const DefaultPageSize = 10

// Page is one slice of a filtered, sorted listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"current_page"`
	PageSize   int `json:"per_page"`
	TotalItems int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Paginate returns items[(page-1)*size : page*size] and ceil(len/size)
// pages. It does not clamp: an out-of-range page yields no items.
func Paginate[T any](items []T, page, size int) Page[T] {
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		TotalItems: len(items),
	}
	if size <= 0 {
		return p
	}
	p.TotalPages = (len(items) + size - 1) / size
	if page < 1 || page > p.TotalPages {
		return p
	}

	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	p.Items = items[start:end]
	return p
}

// ClampPage bounds a requested page to [1, totalPages]. An empty listing
// still has page 1.
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
