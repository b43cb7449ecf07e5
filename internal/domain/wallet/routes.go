package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fitcore/fitcore-api/internal/middleware"
)

// Routes returns the member-facing wallet router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/deposits", h.CreateDeposit)
	r.Post("/withdrawals", h.CreateWithdrawal)
	r.Get("/balance", h.Balance)
	r.Get("/ledger", h.Ledger)
	r.Get("/transactions", h.ListMine)
	return r
}

// AdminRoutes returns the admin decision router for wallet transactions
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())
	r.Get("/", h.List)
	r.Put("/{id}", h.Decide)
	return r
}
