package categories

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

type categoryView struct {
	Category
	FullPath string `json:"full_path"`
}

func toView(c Category) categoryView {
	return categoryView{Category: c, FullPath: c.FullPath()}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromRequest(r)

	categories, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list categories failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	items := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		items = append(items, toView(c))
	}
	httpx.JSON(w, http.StatusOK, internalShared.Page[categoryView]{
		Items:      items,
		Pagination: internalShared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	category, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get category failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(category))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form CategoryForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), form.toCategory())
	if err != nil {
		h.logger.Error("create category failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(created))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var form CategoryForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, form.toCategory())
	if err != nil {
		h.logger.Error("update category failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete category failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
