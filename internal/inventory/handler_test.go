package inventory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type grantAll struct{}

func (grantAll) EffectivePermissions(context.Context, int64) ([]string, error) {
	return []string{shared.PermInventoryView, shared.PermInventoryEdit}, nil
}

func newTestRouter(t *testing.T, repo *memoryRepo) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, ServiceConfig{}, ServiceDeps{Logger: logger})
	h := NewHandler(logger, svc, rbac.Middleware{Service: grantAll{}, Logger: logger})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	sess := &shared.Session{}
	sess.SetUser("1")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCheckStockEndpoint(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo().withProduct(1, "Tea", intPtr(4)))

	rr := do(t, router, http.MethodGet, "/stock/check?product_id=1&quantity=6", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var res availabilityResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.False(t, res.Available)
	require.Equal(t, 4, res.AvailableQty)
	require.Equal(t, "Not enough stock for 'Tea'. Available: 4, Requested: 6", res.Message)

	rr = do(t, router, http.MethodGet, "/stock/check?quantity=6", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStockInEndpoints(t *testing.T) {
	repo := newMemoryRepo().withProduct(1, "Tea", intPtr(0))
	router := newTestRouter(t, repo)

	rr := do(t, router, http.MethodPost, "/stock-ins", `{"notes":"n","items":[{"product_id":1,"quantity":3}]}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var in StockIn
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &in))
	require.Equal(t, 3, in.TotalItems)

	rr = do(t, router, http.MethodPost, "/stock-ins/"+in.ID+"/complete", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 3, repo.stock[1].Quantity)

	rr = do(t, router, http.MethodPost, "/stock-ins/"+in.ID+"/complete", "")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, 3, repo.stock[1].Quantity)

	rr = do(t, router, http.MethodPost, "/stock-ins", `{"items":[]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.NotEmpty(t, problem.Errors)

	rr = do(t, router, http.MethodGet, "/stock-ins/SI19990101001", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}
