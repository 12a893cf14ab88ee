package audithttp

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-backoffice/internal/audit"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

const defaultDateRange = 7 * 24 * time.Hour

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler creates an audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-timeline.csv\"")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Time", "Actor", "Action", "Entity", "Entity ID", "Meta"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.At.Format(time.RFC3339),
			row.Actor,
			row.Action,
			row.Entity,
			row.EntityID,
			string(row.Meta),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters defaults to the last seven days ending today.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	verr := &shared.ValidationError{}

	to := h.now().UTC().Truncate(24 * time.Hour)
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			verr.Add("to", "to must be YYYY-MM-DD")
		}
		to = parsed
	}
	from := to.Add(-defaultDateRange)
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			verr.Add("from", "from must be YYYY-MM-DD")
		}
		from = parsed
	}
	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			verr.Add("page", "page must be a positive number")
		}
		page = parsed
	}
	pageSize := audit.DefaultPageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			verr.Add("page_size", "page_size must be a positive number")
		}
		pageSize = parsed
	}
	if err := verr.Err(); err != nil {
		return audit.TimelineFilters{}, err
	}
	return audit.TimelineFilters{
		From:     from,
		To:       to,
		Actor:    q.Get("actor"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
		Page:     page,
		PageSize: pageSize,
	}, nil
}
