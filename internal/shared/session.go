package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionHeader lets API clients present the session id without cookies.
const SessionHeader = "X-Session-ID"

const sessionKeyPrefix = "session:"

// SessionManager stores back-office sessions in Redis. The id travels in a
// cookie for browsers and in SessionHeader for API clients.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID         string
	values     map[string]string
	userID     string
	previousID string
	isNew      bool
	dirty      bool
	destroyed  bool
}

type sessionPayload struct {
	Values map[string]string `json:"values"`
	UserID string            `json:"user_id"`
}

// NewSessionManager constructs a SessionManager. The secret argument is kept
// for configuration compatibility; ids are random UUIDs.
func NewSessionManager(client *redis.Client, cookieName string, _ string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Load returns the stored session for the request or a fresh one.
// Unknown ids are never adopted.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		cookie, err := r.Cookie(sm.cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		if err != nil {
			return nil, err
		}
		id = cookie.Value
	}

	payload, err := sm.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	sess := &Session{ID: id, values: stored.Values, userID: stored.UserID}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	return sess, nil
}

// Commit writes the session to Redis and echoes its id to the client.
// Untouched sessions only get their expiry extended.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, _ *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.ID).Err(); err != nil {
			return fmt.Errorf("session: delete: %w", err)
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}
	if sess.previousID != "" {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.previousID).Err(); err != nil {
			return fmt.Errorf("session: drop previous: %w", err)
		}
		sess.previousID = ""
	}

	key := sessionKeyPrefix + sess.ID
	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, key, data, sm.ttl).Err(); err != nil {
			return fmt.Errorf("session: save: %w", err)
		}
		sess.dirty, sess.isNew = false, false
	} else if err := sm.client.Expire(ctx, key, sm.ttl).Err(); err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}

	w.Header().Set(SessionHeader, sess.ID)
	http.SetCookie(w, sm.cookie(sess.ID, int(sm.ttl.Seconds())))
	return nil
}

// Renew moves the session to a new id. Login calls it so an id seen
// before authentication never carries a user.
func (sm *SessionManager) Renew(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.isNew {
		sess.previousID = sess.ID
	}
	sess.ID = uuid.NewString()
	sess.dirty = true
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
	}
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// Authenticated reports whether a user is attached.
func (s *Session) Authenticated() bool {
	return s != nil && s.userID != ""
}
