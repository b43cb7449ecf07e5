package referral

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// FindCompletedByReferredUserTx looks up a completed referral for the given
// referred user inside an open transaction. Returns nil when none exists.
func (r *Repository) FindCompletedByReferredUserTx(ctx context.Context, tx *sqlx.Tx, referredUserID uuid.UUID) (*Referral, error) {
	var ref Referral
	err := tx.GetContext(ctx, &ref, `
		SELECT id, referrer_id, referred_user_id, status, created_at
		FROM referrals
		WHERE referred_user_id = $1 AND status = $2
		LIMIT 1
	`, referredUserID, StatusCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// FindByReferrer returns all referrals created by a user
func (r *Repository) FindByReferrer(ctx context.Context, referrerID uuid.UUID) ([]Referral, error) {
	var refs []Referral
	err := r.db.SelectContext(ctx, &refs, `
		SELECT id, referrer_id, referred_user_id, status, created_at
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC
	`, referrerID)
	return refs, err
}
