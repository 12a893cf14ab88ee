package shared

import "strings"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 200

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	// Entity specific filters
	CategoryID   *int64
	ParentID     *int64
	TopLevelOnly bool
}

// Offset returns the row offset for the current page.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}

// Direction returns the SQL keyword for SortDir, ascending unless desc was asked.
func (f ListFilters) Direction() string {
	if strings.EqualFold(f.SortDir, SortDesc) {
		return "DESC"
	}
	return "ASC"
}
