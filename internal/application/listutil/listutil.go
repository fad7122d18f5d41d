package listutil

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int // rows per page
}

// SortParams carries sorting parameters parsed from a request.
type SortParams struct {
	Sort string // column name, empty for the default order
	Dir  string // "asc" or "desc"
}

// Desc reports whether the sort direction is descending.
func (s SortParams) Desc() bool {
	return s.Dir == "desc"
}

// SortKeys names the query parameters that carry the sort column and direction.
type SortKeys struct {
	Column    string
	Direction string
}

// PageInfo carries pagination metadata for the response.
type PageInfo struct {
	Page       int // current page (1-indexed)
	PerPage    int // rows per page
	Total      int // total matching rows
	TotalPages int // ceil(Total / PerPage)
}

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 50

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 20, 50, 100, 200, 500}

// ParsePageParams extracts page and per_page from URL query values.
// Out-of-range values fall back to defaults rather than failing the request.
// PRE: none
// POST: returns valid PageParams with defaults applied
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !slices.Contains(PerPageOptions, perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// ParseSortParams extracts the sort column and direction. An unknown column
// or direction is an error.
// PRE: allowedColumns lists the sortable column names
// POST: returns SortParams; Dir is always "asc" or "desc"
func ParseSortParams(q url.Values, keys SortKeys, allowedColumns []string) (SortParams, error) {
	col := q.Get(keys.Column)
	dir := q.Get(keys.Direction)

	if col != "" && !slices.Contains(allowedColumns, col) {
		return SortParams{}, fmt.Errorf("%s: unknown column %q", keys.Column, col)
	}
	dir = strings.ToLower(dir)
	switch dir {
	case "":
		dir = "asc"
	case "asc", "desc":
	default:
		return SortParams{}, fmt.Errorf("%s: must be asc or desc", keys.Direction)
	}
	return SortParams{Sort: col, Dir: dir}, nil
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: returns PageInfo with TotalPages computed; Page clamped to valid range
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first row on the current page.
// POST: Returns (Page-1) * PerPage
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Slice returns the rows of items that fall on the page described by p.
// PRE: p was computed with Total == len(items)
func Slice[T any](items []T, p PageInfo) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+p.PerPage, len(items))
	return items[start:end]
}
