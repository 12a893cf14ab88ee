package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Middleware guards back-office routes by permission.
type Middleware struct {
	Service PermissionSource
	Logger  *slog.Logger
}

type matcher func(granted map[string]struct{}, required []string) bool

// RequireAny passes when the session user holds at least one of perms.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require("any", normalizePermissions(perms), matchAny)
}

// RequireAll passes only when the session user holds every one of perms.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require("all", normalizePermissions(perms), matchAll)
}

func (m Middleware) require(mode string, required []string, match matcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(required) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac lookup", slog.String("mode", mode), slog.Int64("user_id", userID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !match(permissionSet(granted), required) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func permissionSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	return set
}

func matchAny(granted map[string]struct{}, required []string) bool {
	for _, r := range required {
		if _, ok := granted[r]; ok {
			return true
		}
	}
	return false
}

func matchAll(granted map[string]struct{}, required []string) bool {
	for _, r := range required {
		if _, ok := granted[r]; !ok {
			return false
		}
	}
	return true
}
