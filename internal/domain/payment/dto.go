package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision is an explicit patch for a payment: every field is
// present-or-absent, so an omitted field and a null field cannot be
// confused. Applied through ApplyTo, never by ad-hoc copying.
type Decision struct {
	Status     *string          `json:"status" validate:"omitempty,payment_status"`
	AdminNotes *string          `json:"admin_notes" validate:"omitempty,max=1000"`
	Amount     *decimal.Decimal `json:"amount"`
	ReceiptURL *string          `json:"receipt_url" validate:"omitempty,url,max=512"`
}

// IsEmpty reports whether the decision carries no fields
func (d Decision) IsEmpty() bool {
	return d.Status == nil && d.AdminNotes == nil && d.Amount == nil && d.ReceiptURL == nil
}

// ApplyTo merges the present fields into the payment
func (d Decision) ApplyTo(p *Payment) {
	if d.Status != nil {
		p.Status = Status(*d.Status)
	}
	if d.AdminNotes != nil {
		p.AdminNotes.String = *d.AdminNotes
		p.AdminNotes.Valid = true
	}
	if d.Amount != nil {
		p.Amount = *d.Amount
	}
	if d.ReceiptURL != nil {
		p.ReceiptURL.String = *d.ReceiptURL
		p.ReceiptURL.Valid = true
	}
}

// BulkDecision applies one status to a set of payments
type BulkDecision struct {
	PaymentIDs []uuid.UUID `json:"payment_ids" validate:"required,min=1"`
	Status     string      `json:"status" validate:"required,payment_status"`
	AdminNotes *string     `json:"admin_notes" validate:"omitempty,max=1000"`
}

// ExportFilter narrows the export result set
type ExportFilter struct {
	Status    Status
	StartDate *time.Time
	EndDate   *time.Time
}

// ExportResult is the JSON export payload
type ExportResult struct {
	Payments     []Detail  `json:"payments"`
	ExportedAt   time.Time `json:"exportedAt"`
	TotalRecords int       `json:"totalRecords"`
}

// Stats summarizes payments for the admin dashboard
type Stats struct {
	PendingCount   int             `db:"pending_count" json:"pending_count"`
	ApprovedCount  int             `db:"approved_count" json:"approved_count"`
	RejectedCount  int             `db:"rejected_count" json:"rejected_count"`
	ApprovedAmount decimal.Decimal `db:"approved_amount" json:"approved_amount"`
}
