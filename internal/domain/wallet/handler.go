package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitcore/fitcore-api/internal/middleware"
	"github.com/fitcore/fitcore-api/internal/pkg/response"
	"github.com/fitcore/fitcore-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Decide settles a pending transaction with an admin decision
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	var req DecisionRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	t, err := h.svc.SettleTransaction(r.Context(), id, req.Action, req.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			response.NotFound(w, "wallet transaction not found")
		case errors.Is(err, ErrNotPending):
			response.BadRequest(w, "transaction has already been processed")
		case errors.Is(err, ErrInsufficientBalance):
			response.BadRequest(w, "insufficient wallet balance for withdrawal")
		case errors.Is(err, ErrInvalidAction):
			response.BadRequest(w, "action must be approve or reject")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, t)
}

// List returns transactions for the admin console
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := TransactionStatus(r.URL.Query().Get("status"))

	txnType := r.URL.Query().Get("type")
	if txnType != "" {
		if err := validator.ValidateVar(txnType, "wallet_txn_type"); err != nil {
			response.BadRequest(w, "type must be deposit or withdrawal")
			return
		}
	}

	limit, offset := pagination(r, 50)

	txns, err := h.svc.ListTransactions(r.Context(), status, TransactionType(txnType), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, txns)
}

// CreateDeposit creates a pending deposit request for the caller
func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateDepositRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	t, err := h.svc.CreateDeposit(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "amount must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, t)
}

// CreateWithdrawal creates a pending withdrawal request for the caller
func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateWithdrawalRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	t, err := h.svc.CreateWithdrawal(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "amount must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, t)
}

// Balance returns the caller's wallet
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	wallet, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, wallet)
}

// Ledger returns the caller's ledger history
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset := pagination(r, 20)
	entries, err := h.svc.Ledger(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, entries)
}

// ListMine returns the caller's own deposit/withdrawal requests
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset := pagination(r, 20)
	txns, err := h.svc.ListUserTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, txns)
}

// PresignReceipt issues a presigned upload URL for a deposit receipt
func (h *Handler) PresignReceipt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req struct {
		ContentType string `json:"content_type" validate:"required"`
	}
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	key, uploadURL, err := h.svc.PresignReceipt(r.Context(), userID, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedReceipt):
			response.BadRequest(w, "content type must be jpeg, png, webp or pdf")
		case errors.Is(err, ErrStorageUnavailable):
			response.Error(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "receipt storage not configured")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{
		"key":        key,
		"upload_url": uploadURL,
	})
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
