package orders

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Page:  httpx.QueryInt(r, "page", 1),
		Limit: httpx.QueryInt(r, "limit", 20),
	}
	if raw := q.Get("vendor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("vendor_id", "vendor_id must be a number"))
			return
		}
		filter.VendorID = id
	}
	var err error
	if filter.From, err = parseDate(q.Get("date_from"), "date_from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = parseDate(q.Get("date_to"), "date_to"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To != nil {
		end := filter.To.AddDate(0, 0, 1)
		filter.To = &end
	}

	orders, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list orders failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.Page[Order]{
		Items:      orders,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Invoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Create(r.Context(), CreateInput{
		VendorID:       req.VendorID,
		Notes:          req.Notes,
		Lines:          toLines(req.Items),
		IdempotencyKey: r.Header.Get(shared.IdempotencyHeader),
	})
	if err != nil {
		h.logger.Warn("create order failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := UpdateInput{VendorID: req.VendorID, Notes: req.Notes}
	if req.Items != nil {
		if err := httpx.Validate(h.validator, lineSet{Items: *req.Items}); err != nil {
			httpx.RespondError(w, err)
			return
		}
		lines := toLines(*req.Items)
		in.Lines = &lines
	}
	order, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("update order failed", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("delete order failed", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func parseDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, shared.NewValidationError(field, "date must be formatted YYYY-MM-DD")
	}
	return &t, nil
}
