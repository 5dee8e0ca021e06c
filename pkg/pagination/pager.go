package pagination

// DefaultPageSize is the gallery page size.
const DefaultPageSize = 25

// Window is the limit/offset slice of a list endpoint for one page.
type Window struct {
	Page   int
	Limit  int
	Offset int
}

// Pager maps page numbers to windows.
type Pager struct {
	Size int
}

// NewPager creates a pager; sizes below 1 fall back to DefaultPageSize.
func NewPager(size int) Pager {
	if size < 1 {
		size = DefaultPageSize
	}
	return Pager{Size: size}
}

// Window returns the window of a 1-based page; pages below 1 read as 1.
func (p Pager) Window(page int) Window {
	size := p.Size
	if size < 1 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return Window{Page: page, Limit: size, Offset: (page - 1) * size}
}

// PageCount returns how many pages total items fill.
func (p Pager) PageCount(total int) int {
	size := p.Size
	if size < 1 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
