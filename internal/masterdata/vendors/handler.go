package vendors

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromRequest(r)

	vendors, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list vendors failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, internalShared.Page[Vendor]{
		Items:      vendors,
		Pagination: internalShared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	vendor, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get vendor failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vendor)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form VendorForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), form.toVendor())
	if err != nil {
		h.logger.Error("create vendor failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var form VendorForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, form.toVendor())
	if err != nil {
		h.logger.Error("update vendor failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete vendor failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
