package program

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Program is a subscription program members can purchase
type Program struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  sql.NullString  `db:"description" json:"description,omitempty"`
	Price        decimal.Decimal `db:"price" json:"price"`
	DurationDays int             `db:"duration_days" json:"duration_days"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
