package payment

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

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

// Update settles a single payment with an admin decision
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid payment id")
		return
	}

	var d Decision
	if err := response.DecodeJSON(r.Body, &d); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(d); details != nil {
		response.ValidationError(w, details)
		return
	}

	detail, err := h.svc.Settle(r.Context(), id, d)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "payment not found")
		case errors.Is(err, ErrEmptyDecision):
			response.BadRequest(w, "decision has no fields to apply")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must not be negative")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, detail)
}

// Delete removes a pending payment or cancels a processed one
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid payment id")
		return
	}

	result, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "payment not found")
			return
		}
		response.InternalError(w)
		return
	}

	message := "payment cancelled"
	if result.Deleted {
		message = "payment deleted"
	}
	response.OK(w, map[string]interface{}{
		"message": message,
		"result":  result,
	})
}

// BulkUpdate settles a set of payments with one decision
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkDecision
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	details, err := h.svc.BulkSettle(r.Context(), req.PaymentIDs, Status(req.Status), req.AdminNotes)
	if err != nil {
		if errors.Is(err, ErrNoneFound) {
			response.NotFound(w, "no payments found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"updated_count": len(details),
		"payments":      details,
	})
}

// List returns payments for the admin console
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	limit, offset := pagination(r, 50)

	details, err := h.svc.List(r.Context(), status, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, details)
}

// ListMine returns the caller's own payments
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset := pagination(r, 20)
	details, err := h.svc.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, details)
}

// Export streams payments as CSV or returns them as JSON
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := q.Get("format")
	if err := validator.ValidateVar(format, "export_format"); err != nil {
		response.BadRequest(w, "format must be csv or json")
		return
	}

	filter := ExportFilter{Status: Status(q.Get("status"))}
	if filter.Status != "" && filter.Status != StatusPending && filter.Status != StatusApproved && filter.Status != StatusRejected {
		response.BadRequest(w, "invalid status filter")
		return
	}

	var err error
	if filter.StartDate, err = parseDateParam(q.Get("startDate")); err != nil {
		response.BadRequest(w, "invalid startDate")
		return
	}
	if filter.EndDate, err = parseDateParam(q.Get("endDate")); err != nil {
		response.BadRequest(w, "invalid endDate")
		return
	}

	result, err := h.svc.Export(r.Context(), filter)
	if err != nil {
		response.InternalError(w)
		return
	}

	if format == "csv" {
		writeCSV(w, result.Payments)
		return
	}
	response.OK(w, result)
}

// Stats returns dashboard totals
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.StatsCached(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, stats)
}

// writeCSV emits the export with RFC 4180 quoting (encoding/csv wraps and
// doubles quotes for fields containing commas, quotes or newlines).
func writeCSV(w http.ResponseWriter, payments []Detail) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="payments.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"id", "user_name", "user_email", "program_name", "amount", "status", "admin_notes", "created_at", "processed_at"})

	for _, p := range payments {
		processedAt := ""
		if p.ProcessedAt.Valid {
			processedAt = p.ProcessedAt.Time.Format(time.RFC3339)
		}
		cw.Write([]string{
			p.ID.String(),
			p.UserName,
			p.UserEmail,
			p.ProgramName,
			p.Amount.StringFixed(2),
			string(p.Status),
			p.AdminNotes.String,
			p.CreatedAt.Format(time.RFC3339),
			processedAt,
		})
	}
}

func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
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
