package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	// MaxRange bounds a timeline query window.
	MaxRange = 90 * 24 * time.Hour
	// MaxExportRows caps CSV exports.
	MaxExportRows = 10000
)

// Service reads the audit timeline.
type Service struct {
	repo Repository
}

// NewService creates an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	filters, err := normalize(filters)
	if err != nil {
		return Result{}, err
	}
	offset := (filters.Page - 1) * filters.PageSize
	rows, err := s.repo.Window(ctx, filters, filters.PageSize+1, offset)
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline: %w", err)
	}
	hasNext := len(rows) > filters.PageSize
	if hasNext {
		rows = rows[:filters.PageSize]
	}
	paging := PagingInfo{Page: filters.Page, PageSize: filters.PageSize, HasNext: hasNext}
	if filters.Page > 1 {
		paging.PrevPage = filters.Page - 1
	}
	if hasNext {
		paging.NextPage = filters.Page + 1
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching entry up to MaxExportRows.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	filters, err := normalize(filters)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.All(ctx, filters, MaxExportRows)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	return rows, nil
}

func normalize(f TimelineFilters) (TimelineFilters, error) {
	f.Actor = strings.TrimSpace(f.Actor)
	f.Entity = strings.TrimSpace(f.Entity)
	f.EntityID = strings.TrimSpace(f.EntityID)
	f.Action = strings.TrimSpace(f.Action)
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	verr := &shared.ValidationError{}
	if !f.From.IsZero() && !f.To.IsZero() {
		if f.From.After(f.To) {
			verr.Add("from", "from must not be after to")
		} else if f.To.Sub(f.From) > MaxRange {
			verr.Add("to", "range must not exceed 90 days")
		}
	}
	return f, verr.Err()
}
