package wallet

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a wallet request
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus represents the admin decision state
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// LedgerEntryType represents the sign of a balance mutation
type LedgerEntryType string

const (
	LedgerCredit LedgerEntryType = "credit"
	LedgerDebit  LedgerEntryType = "debit"
)

// Reference types recorded on ledger entries
const (
	ReferencePayment     = "payment"
	ReferenceTransaction = "wallet_transaction"
)

// Wallet holds a member's custodial balance. One wallet per user, created
// lazily on first credit. Balance changes only through credit/debit
// operations that also append a ledger entry.
type Wallet struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Currency  string          `db:"currency" json:"currency"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is a member-initiated deposit or withdrawal request awaiting
// an admin decision.
type Transaction struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	UserID          uuid.UUID         `db:"user_id" json:"user_id"`
	Type            TransactionType   `db:"type" json:"type"`
	Amount          decimal.Decimal   `db:"amount" json:"amount"`
	Status          TransactionStatus `db:"status" json:"status"`
	ReceiptKey      sql.NullString    `db:"receipt_key" json:"-"`
	ReceiptURL      sql.NullString    `db:"receipt_url" json:"receipt_url,omitempty"`
	ReceiptStatus   sql.NullString    `db:"receipt_status" json:"-"`
	ReceiptAttempts int               `db:"receipt_attempts" json:"-"`
	ReceiptError    sql.NullString    `db:"receipt_error" json:"-"`
	CardNumber      sql.NullString    `db:"card_number" json:"card_number,omitempty"`
	CardHolderName  sql.NullString    `db:"card_holder_name" json:"card_holder_name,omitempty"`
	AdminNotes      sql.NullString    `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	ProcessedAt     sql.NullTime      `db:"processed_at" json:"processed_at,omitempty"`
}

// IsPending reports whether the transaction still awaits a decision
func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

// LedgerEntry is an append-only audit record of a single balance change.
// Invariant: sum of entries (credit positive, debit negative) equals the
// wallet balance.
type LedgerEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	WalletID      uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Type          LedgerEntryType `db:"type" json:"type"`
	Description   string          `db:"description" json:"description"`
	ReferenceID   uuid.UUID       `db:"reference_id" json:"reference_id"`
	ReferenceType string          `db:"reference_type" json:"reference_type"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
