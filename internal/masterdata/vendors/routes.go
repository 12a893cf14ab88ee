package vendors

import (
	"github.com/go-chi/chi/v5"

	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

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
