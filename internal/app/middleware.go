package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRatePerMinute  = 120
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// sessionWriter persists the session right before the first header is sent.
type sessionWriter struct {
	http.ResponseWriter
	ctx       context.Context
	req       *http.Request
	sess      *shared.Session
	manager   *shared.SessionManager
	logger    *slog.Logger
	committed bool
}

func (w *sessionWriter) WriteHeader(status int) {
	if !w.committed {
		w.committed = true
		if err := w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess); err != nil {
			w.logger.Error("commit session", slog.Any("error", err))
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// MiddlewareStack installs the back-office middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	timeout := defaultRequestTimeout
	perMinute := defaultRatePerMinute
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimitPerMinute > 0 {
			perMinute = cfg.Config.RateLimitPerMinute
		}
	}

	stack := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Logger,
		cfg.loadSession,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		cfg.secureHeaders(),
		middleware.Compress(5),
		httprate.Limit(perMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
			}),
		),
		cfg.verifyCSRF,
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware)
	}
	return stack
}

func (cfg MiddlewareConfig) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, err := cfg.SessionManager.Load(ctx, r)
		if err != nil {
			cfg.Logger.Error("load session", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		ctx = shared.ContextWithSession(ctx, sess)
		if uid, ok := shared.UserIDFromContext(ctx); ok {
			ctx = shared.ContextWithActor(ctx, uid)
		}
		r = r.WithContext(ctx)
		next.ServeHTTP(&sessionWriter{
			ResponseWriter: w,
			ctx:            ctx,
			req:            r,
			sess:           sess,
			manager:        cfg.SessionManager,
			logger:         cfg.Logger,
		}, r)
	})
}

// verifyCSRF checks the header token on every write. Login is the only
// unauthenticated write because it bootstraps the token.
func (cfg MiddlewareConfig) verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "session required")
			return
		}
		if !sess.Authenticated() && r.URL.Path == "/auth/login" {
			next.ServeHTTP(w, r)
			return
		}
		if err := cfg.CSRFManager.VerifyToken(r.Context(), sess, r.Header.Get(shared.CSRFHeader)); err != nil {
			cfg.Logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "csrf token missing or invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (cfg MiddlewareConfig) secureHeaders() func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Config.IsProduction(),
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sec.Process(w, r); err != nil {
				cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
