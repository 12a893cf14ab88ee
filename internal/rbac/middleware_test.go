package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type stubPermissions struct {
	perms map[int64][]string
	err   error
}

func (s stubPermissions) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return s.perms[userID], s.err
}

func requestAs(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID == "" {
		return req
	}
	sess := &shared.Session{}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireAny(t *testing.T) {
	m := Middleware{Service: stubPermissions{perms: map[int64][]string{
		1: {"inventory.view"},
	}}}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := m.RequireAny("inventory.view", "inventory.edit")(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs("1"))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs("2"))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs(""))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAll(t *testing.T) {
	m := Middleware{Service: stubPermissions{perms: map[int64][]string{
		1: {"Sales.Order.View"},
		2: {"sales.order.view", "sales.order.edit"},
	}}}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := m.RequireAll("sales.order.view", "sales.order.edit")(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs("1"))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs("2"))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireAnyLookupFailure(t *testing.T) {
	m := Middleware{Service: stubPermissions{err: errors.New("db down")}}
	h := m.RequireAny("reports.view")(http.NotFoundHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs("7"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
