package referral

import (
	"time"

	"github.com/google/uuid"
)

// Status represents referral status
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Referral links a referrer to the user they brought in. Rows are created at
// signup and completed by enrollment; this package only reads them.
type Referral struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ReferrerID     uuid.UUID `db:"referrer_id" json:"referrer_id"`
	ReferredUserID uuid.UUID `db:"referred_user_id" json:"referred_user_id"`
	Status         Status    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
