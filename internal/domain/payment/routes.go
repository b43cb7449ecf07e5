package payment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fitcore/fitcore-api/internal/middleware"
)

// AdminRoutes returns the admin decision router for payments
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())
	r.Get("/", h.List)
	r.Put("/", h.BulkUpdate)
	r.Get("/export", h.Export)
	r.Get("/stats", h.Stats)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// MemberRoutes returns the member-facing payment router
func (h *Handler) MemberRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.ListMine)
	return r
}
