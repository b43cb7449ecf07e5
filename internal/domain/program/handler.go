package program

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitcore/fitcore-api/internal/domain/payment"
	"github.com/fitcore/fitcore-api/internal/middleware"
	"github.com/fitcore/fitcore-api/internal/pkg/response"
)

type Handler struct {
	repo     *Repository
	payments *payment.Service
}

func NewHandler(repo *Repository, payments *payment.Service) *Handler {
	return &Handler{repo: repo, payments: payments}
}

// List returns active programs
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	programs, err := h.repo.ListActive(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, programs)
}

// Subscribe creates a pending payment for the program at its current price
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	programID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid program id")
		return
	}

	p, err := h.repo.GetByID(r.Context(), programID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "program not found")
			return
		}
		response.InternalError(w)
		return
	}
	if !p.IsActive {
		response.Conflict(w, "program is not active")
		return
	}

	created, err := h.payments.CreatePending(r.Context(), userID, p.ID, p.Price)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, created)
}

// Routes returns the program router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/{id}/subscribe", h.Subscribe)
	})
	return r
}
