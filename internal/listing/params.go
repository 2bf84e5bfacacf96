package listing

import (
	"fmt"
	"strings"
)

const (
	// DefaultPageSize applies when the caller does not request a page size.
	DefaultPageSize = 20
	// MaxPageSize caps the page size a caller may request.
	MaxPageSize = 200
)

// Sort directions accepted by list endpoints.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params captures the list query state every list screen derives its
// requests from: free-text search, a status filter, sort order and the
// requested page.
type Params struct {
	Search   string
	Status   string
	SortBy   string
	Sort     string
	Page     int
	PageSize int
}

// Normalize clamps page and page size into their valid ranges and trims the
// text inputs. Page numbering is 1-based.
func (p Params) Normalize() Params {
	p.Search = strings.TrimSpace(p.Search)
	p.Status = strings.TrimSpace(p.Status)
	p.SortBy = strings.ToLower(strings.TrimSpace(p.SortBy))
	p.Sort = strings.ToLower(strings.TrimSpace(p.Sort))

	if p.Sort != SortAsc && p.Sort != SortDesc {
		p.Sort = SortDesc
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset converts the 1-based page into a row offset.
func (p Params) Offset() int {
	page := p.Page
	if page <= 0 {
		page = 1
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return (page - 1) * size
}

// CacheKey builds the deterministic cache key for this query under the given
// entity prefix. Keys for one entity share the prefix so a mutation can
// invalidate them together without touching other entities. The free-text
// fields are length-prefixed so that no two distinct queries can produce the
// same key, whatever characters the caller typed.
func (p Params) CacheKey(prefix string) string {
	p = p.Normalize()

	var sb strings.Builder
	sb.WriteString(prefix)
	fmt.Fprintf(&sb, "_p%d_s%d", p.Page, p.PageSize)
	if p.Search != "" {
		search := strings.ToLower(p.Search)
		fmt.Fprintf(&sb, "_q%d:%s", len(search), search)
	}
	if p.Status != "" {
		fmt.Fprintf(&sb, "_f%d:%s", len(p.Status), p.Status)
	}
	sb.WriteString("_o")
	if p.SortBy != "" {
		fmt.Fprintf(&sb, "%d:%s.", len(p.SortBy), p.SortBy)
	}
	sb.WriteString(p.Sort)
	return sb.String()
}
