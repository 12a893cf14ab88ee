package reports

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type reportsViewer struct{}

func (reportsViewer) EffectivePermissions(context.Context, int64) ([]string, error) {
	return []string{shared.PermReportsView}, nil
}

func get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	repo := &mockRepo{count: 1, total: decimal.RequireFromString("10"), stock: sampleStock()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(repo, nil, 10, logger), rbac.Middleware{Service: reportsViewer{}})
	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess := &shared.Session{}
	sess.SetUser("3")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestExportEndpoints(t *testing.T) {
	rr := get(t, "/stock/export.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rr.Body.String(), "Product Name,Current Qty"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "stock_report_")

	rr = get(t, "/sales/export.xlsx")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))

	rr = get(t, "/sales/export.pdf")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = get(t, "/sales?start_date=2025-13-01")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = get(t, "/dashboard")
	require.Equal(t, http.StatusOK, rr.Code)
}
