package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView, shared.PermInventoryEdit))
		r.Get("/stock", h.listStock)
		r.Get("/stock/check", h.checkStock)
		r.Get("/stock-ins", h.listStockIns)
		r.Get("/stock-ins/{id}", h.showStockIn)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInventoryEdit))
		r.Post("/stock/ensure", h.ensureStock)
		r.Post("/stock-ins", h.createStockIn)
		r.Put("/stock-ins/{id}", h.updateStockIn)
		r.Delete("/stock-ins/{id}", h.deleteStockIn)
		r.Post("/stock-ins/{id}/complete", h.completeStockIn)
	})
}

type stockInRequest struct {
	Notes string        `json:"notes" validate:"max=2000"`
	Items []StockInLine `json:"items" validate:"required,min=1,dive"`
}

type availabilityResponse struct {
	Available    bool               `json:"available"`
	AvailableQty int                `json:"available_qty"`
	Status       AvailabilityStatus `json:"status"`
	Message      string             `json:"message"`
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := StockFilter{
		Filter:    q.Get("filter"),
		Threshold: httpx.QueryInt(r, "threshold", 0),
		Search:    q.Get("search"),
		Page:      httpx.QueryInt(r, "page", 1),
		Limit:     httpx.QueryInt(r, "limit", 50),
	}
	rows, total, err := h.service.ListStock(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.Page[StockRow]{
		Items:      rows,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) checkStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := strconv.ParseInt(q.Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.RespondError(w, shared.NewValidationError("product_id", "product_id is required"))
		return
	}
	qty, err := strconv.Atoi(q.Get("quantity"))
	if err != nil {
		httpx.RespondError(w, shared.NewValidationError("quantity", "quantity must be a number"))
		return
	}
	res, err := h.service.CheckAvailability(r.Context(), productID, qty)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, availabilityResponse{
		Available:    res.OK(),
		AvailableQty: res.AvailableQty,
		Status:       res.Status,
		Message:      res.Message,
	})
}

func (h *Handler) ensureStock(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.EnsureStockRecords(r.Context())
	if err != nil {
		h.logger.Error("ensure stock records", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) listStockIns(w http.ResponseWriter, r *http.Request) {
	filter := StockInFilter{
		Status: r.URL.Query().Get("status"),
		Page:   httpx.QueryInt(r, "page", 1),
		Limit:  httpx.QueryInt(r, "limit", 20),
	}
	items, total, err := h.service.ListStockIns(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stock ins", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.Page[StockIn]{
		Items:      items,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) showStockIn(w http.ResponseWriter, r *http.Request) {
	in, err := h.service.GetStockIn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

func (h *Handler) decodeStockIn(r *http.Request) (stockInRequest, error) {
	var req stockInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	return req, httpx.Validate(h.validator, req)
}

func (h *Handler) createStockIn(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeStockIn(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.service.CreateStockIn(r.Context(), req.Notes, req.Items)
	if err != nil {
		h.logger.Error("create stock in", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, in)
}

func (h *Handler) updateStockIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.decodeStockIn(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.service.UpdateStockIn(r.Context(), id, req.Notes, req.Items)
	if err != nil {
		h.logger.Error("update stock in", slog.String("stock_in_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

func (h *Handler) deleteStockIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteStockIn(r.Context(), id); err != nil {
		h.logger.Error("delete stock in", slog.String("stock_in_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) completeStockIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := h.service.CompleteStockIn(r.Context(), id)
	if err != nil {
		h.logger.Warn("complete stock in", slog.String("stock_in_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}
