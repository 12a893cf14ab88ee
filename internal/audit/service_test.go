package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type stubRepo struct {
	rows       []TimelineRow
	lastFilter TimelineFilters
	lastLimit  int
	lastOffset int
}

func (s *stubRepo) Window(_ context.Context, f TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastFilter, s.lastLimit, s.lastOffset = f, limit, offset
	end := offset + limit
	if offset > len(s.rows) {
		return nil, nil
	}
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func (s *stubRepo) All(_ context.Context, f TimelineFilters, max int) ([]TimelineRow, error) {
	s.lastFilter, s.lastLimit = f, max
	return s.rows, nil
}

func entries(n int) []TimelineRow {
	base := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{ID: int64(n - i), At: base.Add(-time.Duration(i) * time.Hour), Actor: "admin@example.com", Action: "order.create", Entity: "order", EntityID: fmt.Sprint(i + 1)}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: entries(5)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.True(t, res.Paging.HasNext)
	assert.Equal(t, 2, res.Paging.NextPage)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)

	res, err = svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.False(t, res.Paging.HasNext)
	assert.Equal(t, 2, res.Paging.PrevPage)
	assert.Equal(t, 4, repo.lastOffset)
}

func TestTimelineNormalizesFilters(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500, Entity: "  order "})
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Equal(t, MaxPageSize, res.Paging.PageSize)
	assert.Equal(t, "order", repo.lastFilter.Entity)
	assert.Equal(t, 1, repo.lastFilter.Page)
}

func TestTimelineRejectsBadRange(t *testing.T) {
	svc := NewService(&stubRepo{})
	from := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	_, err := svc.Timeline(context.Background(), TimelineFilters{From: from, To: from.AddDate(0, 0, -1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Export(context.Background(), TimelineFilters{From: from, To: from.AddDate(0, 0, 120)})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestExportCapsRows(t *testing.T) {
	repo := &stubRepo{rows: entries(3)}
	rows, err := NewService(repo).Export(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, MaxExportRows, repo.lastLimit)
}
