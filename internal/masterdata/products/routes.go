package products

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

// MountLookupRoutes registers barcode lookup and search under the inventory prefix.
func (h *Handler) MountLookupRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(internalShared.PermInventoryView, internalShared.PermInventoryEdit))
		r.Get("/search", h.Search)
		r.Get("/barcode/{code}", h.ByBarcode)
	})
}

// MountPriceRoutes registers the order line price lookup.
func (h *Handler) MountPriceRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(internalShared.PermOrderView, internalShared.PermOrderEdit))
		r.Get("/{id}/price", h.Price)
	})
}
