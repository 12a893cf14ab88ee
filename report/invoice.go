package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/sales/orders"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
	"github.com/odyssey-erp/odyssey-backoffice/internal/view"
)

// InvoiceSource loads the printable view of an order.
type InvoiceSource interface {
	Invoice(ctx context.Context, id int64) (orders.Invoice, error)
}

// Renderer turns HTML into PDF bytes.
type Renderer interface {
	Ping(ctx context.Context) error
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves rendered documents.
type Handler struct {
	renderer Renderer
	engine   *view.Engine
	invoices InvoiceSource
	rbac     rbac.Middleware
	logger   *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(renderer Renderer, engine *view.Engine, invoices InvoiceSource, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{renderer: renderer, engine: engine, invoices: invoices, rbac: rbac, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrderView, shared.PermOrderEdit))
		r.Get("/orders/{id}/invoice.pdf", h.invoicePDF)
	})
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "pdf renderer unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.invoices.Invoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := h.engine.RenderString("invoice.html", view.TemplateData{
		Title: fmt.Sprintf("Invoice %d", inv.Order.ID),
		Data:  inv,
	})
	if err != nil {
		h.logger.Error("render invoice template", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.renderer.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Int64("order_id", id), slog.Any("error", err))
		status := http.StatusInternalServerError
		if errors.Is(err, ErrRenderUnavailable) {
			status = http.StatusBadGateway
		}
		httpx.Problem(w, status, http.StatusText(status), "could not render invoice")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=invoice-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
