package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents payment status
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Payment is a member's purchase of a subscription program, awaiting an
// admin decision. Amount is immutable once approved unless explicitly
// edited through the decision path. A referral bonus is posted at most once
// per payment transitioning into approved.
type Payment struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	ProgramID   uuid.UUID       `db:"program_id" json:"program_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Status      Status          `db:"status" json:"status"`
	AdminNotes  sql.NullString  `db:"admin_notes" json:"admin_notes,omitempty"`
	ReceiptURL  sql.NullString  `db:"receipt_url" json:"receipt_url,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt sql.NullTime    `db:"processed_at" json:"processed_at,omitempty"`
}

// IsApproved reports whether the payment has been approved
func (p *Payment) IsApproved() bool {
	return p.Status == StatusApproved
}

// Detail is a payment joined with user and program projections for the
// admin console.
type Detail struct {
	Payment
	UserName    string `db:"user_name" json:"user_name"`
	UserEmail   string `db:"user_email" json:"user_email"`
	ProgramName string `db:"program_name" json:"program_name"`
}
