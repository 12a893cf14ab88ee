package attributes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(internalShared.PermMasterDataView, internalShared.PermMasterDataEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(internalShared.PermMasterDataEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type attributeView struct {
	Attribute
	ChoiceList []string `json:"choice_list"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromRequest(r)
	attributes, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list attributes failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	items := make([]attributeView, 0, len(attributes))
	for _, a := range attributes {
		items = append(items, attributeView{Attribute: a, ChoiceList: a.ChoiceList()})
	}
	httpx.JSON(w, http.StatusOK, internalShared.Page[attributeView]{
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
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, attributeView{Attribute: a, ChoiceList: a.ChoiceList()})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var a Attribute
	if err := httpx.DecodeJSON(r, &a); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), a)
	if err != nil {
		h.logger.Error("create attribute failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, attributeView{Attribute: created, ChoiceList: created.ChoiceList()})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var a Attribute
	if err := httpx.DecodeJSON(r, &a); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, a)
	if err != nil {
		h.logger.Error("update attribute failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, attributeView{Attribute: updated, ChoiceList: updated.ChoiceList()})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete attribute failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
