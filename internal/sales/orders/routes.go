package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrderView, shared.PermOrderEdit))
		r.Get("/orders", h.List)
		r.Get("/orders/{id}", h.Show)
		r.Get("/orders/{id}/invoice", h.Invoice)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderEdit))
		r.Post("/orders", h.Create)
		r.Put("/orders/{id}", h.Update)
		r.Delete("/orders/{id}", h.Delete)
	})
}
