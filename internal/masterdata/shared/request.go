package shared

import (
	"net/http"
	"strconv"
)

// FiltersFromRequest reads the common list query parameters.
func FiltersFromRequest(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = DefaultPage
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	filters := ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if raw := q.Get("category_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.CategoryID = &id
		}
	}
	if raw := q.Get("parent_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.ParentID = &id
		}
	}
	if raw := q.Get("is_active"); raw != "" {
		isActive := raw == "true"
		filters.IsActive = &isActive
	}
	filters.TopLevelOnly = q.Get("top_level") == "true"
	return filters
}
