package report

import (
	"math"
	"strconv"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PageRequest selects one window of an HTML table.
type PageRequest struct {
	Page     int
	PageSize int
}

// ParsePageRequest reads the page and page_size parameters. Missing or
// non-positive values fall back to page 1 and defaultSize; page_size is capped
// at MaxPageSize.
func ParsePageRequest(page, pageSize string, defaultSize int) PageRequest {
	if defaultSize < 1 || defaultSize > MaxPageSize {
		defaultSize = DefaultPageSize
	}

	req := PageRequest{Page: 1, PageSize: defaultSize}
	if n, err := strconv.Atoi(page); err == nil && n > 0 {
		req.Page = n
	}
	if n, err := strconv.Atoi(pageSize); err == nil && n > 0 {
		req.PageSize = min(n, MaxPageSize)
	}
	return req
}

// Page describes the window Paginate cut from a result set.
type Page struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// HasPrev reports whether a page precedes this one.
func (p Page) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a page follows this one.
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// Paginate returns the rows of rs on the requested page. A page past the end
// is clamped to the last page. rs itself is not modified, so file downloads
// keep rendering the full set.
func Paginate(rs *domain.ResultSet, req PageRequest) (*domain.ResultSet, Page) {
	if req.PageSize < 1 {
		req.PageSize = DefaultPageSize
	}
	total := rs.Len()
	p := Page{
		Page:       max(req.Page, 1),
		PageSize:   req.PageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(req.PageSize))),
	}
	if p.TotalPages > 0 && p.Page > p.TotalPages {
		p.Page = p.TotalPages
	}

	out := &domain.ResultSet{}
	if rs == nil {
		return out, p
	}
	out.Columns = rs.Columns

	start := (p.Page - 1) * p.PageSize
	if start >= total {
		return out, p
	}
	end := min(start+p.PageSize, total)
	out.Rows = rs.Rows[start:end]
	return out, p
}
