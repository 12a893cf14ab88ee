package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-backoffice/internal/auth"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
	_ "github.com/odyssey-erp/odyssey-backoffice/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) UpsertUser(ctx context.Context, email, hash string) (*auth.User, error) {
	s.user = &auth.User{ID: 7, Email: email, PasswordHash: hash, IsActive: true}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type harness struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
}

func newHarness(t *testing.T, repo auth.Repository) harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	h := auth.NewHandler(nil, auth.NewService(repo), sessions, shared.NewCSRFManager("csrfsecret"))
	return harness{handler: h, sessions: sessions}
}

// call runs one request through the session lifecycle the app middleware applies.
func (hs harness) call(t *testing.T, method, target, body, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(shared.SessionHeader, sessionID)
	}
	sess, err := hs.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	router := chi.NewRouter()
	hs.handler.MountRoutes(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.NoError(t, hs.sessions.Commit(ctx, rr, req, sess))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestCSRFIssuesToken(t *testing.T) {
	hs := newHarness(t, &stubRepo{})
	rr := hs.call(t, http.MethodGet, "/csrf", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.NotEmpty(t, body["csrf_token"])
	assert.NotEmpty(t, body["session_id"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "user@test.local", PasswordHash: hashed(t, "correctpass"), IsActive: true}}
	hs := newHarness(t, repo)

	rr := hs.call(t, http.MethodPost, "/login", `{"email":"user@test.local","password":"wrongpass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, repo.sessions)

	rr = hs.call(t, http.MethodPost, "/login", `{"email":"not-an-email","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "user@test.local", PasswordHash: hashed(t, "correctpass"), IsActive: false}}
	hs := newHarness(t, repo)
	rr := hs.call(t, http.MethodPost, "/login", `{"email":"user@test.local","password":"correctpass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginMeLogout(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "user@test.local", PasswordHash: hashed(t, "correctpass"), IsActive: true}}
	hs := newHarness(t, repo)

	rr := hs.call(t, http.MethodPost, "/login", `{"email":"user@test.local","password":"correctpass"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.NotEmpty(t, body["csrf_token"])
	assert.Equal(t, int64(1), repo.sessions[sessionID])

	rr = hs.call(t, http.MethodGet, "/me", "", sessionID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user@test.local", decode(t, rr)["email"])

	rr = hs.call(t, http.MethodPost, "/logout", "", sessionID)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, repo.sessions)

	rr = hs.call(t, http.MethodGet, "/me", "", sessionID)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestEnsureUser(t *testing.T) {
	repo := &stubRepo{}
	svc := auth.NewService(repo)

	_, err := svc.EnsureUser(context.Background(), "admin", "short")
	require.ErrorIs(t, err, shared.ErrValidation)

	user, err := svc.EnsureUser(context.Background(), " Admin@Example.com ", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)

	got, err := svc.Authenticate(context.Background(), "admin@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}
