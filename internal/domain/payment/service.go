package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fitcore/fitcore-api/internal/domain/events"
	"github.com/fitcore/fitcore-api/internal/domain/referral"
	"github.com/fitcore/fitcore-api/internal/domain/wallet"
	"github.com/fitcore/fitcore-api/internal/pkg/database"
)

const (
	cancelledByAdminNote = "cancelled by admin"

	statsCacheKey = "payments:stats"
	statsCacheTTL = 30 * time.Second
)

// Service is the payment half of the settlement engine. Every admin
// decision on a payment, including the derived referral bonus credit and
// its ledger entry, commits inside a single transaction or not at all.
type Service struct {
	db        *sqlx.DB
	repo      *Repository
	wallets   *wallet.Repository
	referrals *referral.Repository
	cache     *redis.Client
	pub       events.Publisher

	// failAfterUpdate is set only by tests to inject a fault between the
	// payment update and the derived writes.
	failAfterUpdate func() error
}

func NewService(db *sqlx.DB, repo *Repository, wallets *wallet.Repository, referrals *referral.Repository, cache *redis.Client, pub events.Publisher) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		wallets:   wallets,
		referrals: referrals,
		cache:     cache,
		pub:       pub,
	}
}

// DeleteResult reports what Delete actually did
type DeleteResult struct {
	Deleted   bool     `json:"deleted"`
	Cancelled bool     `json:"cancelled"`
	Payment   *Payment `json:"payment,omitempty"`
}

// Settle applies an admin decision to a payment. When the decision moves
// the payment into approved from any other status, a completed referral for
// the payer triggers a bonus credit to the referrer's wallet with a
// matching ledger entry. Re-approving an approved payment updates notes and
// processed_at but never re-pays the bonus.
func (s *Service) Settle(ctx context.Context, paymentID uuid.UUID, d Decision) (*Detail, error) {
	if d.IsEmpty() {
		return nil, ErrEmptyDecision
	}
	if d.Amount != nil && d.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	err := database.WithinTxRetry(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.repo.GetForUpdateTx(ctx, tx, paymentID)
		if err != nil {
			return err
		}

		prior := p.Status
		d.ApplyTo(p)
		p.ProcessedAt = sql.NullTime{Time: time.Now(), Valid: true}

		if err := s.repo.UpdateTx(ctx, tx, p); err != nil {
			return err
		}
		if s.failAfterUpdate != nil {
			if err := s.failAfterUpdate(); err != nil {
				return err
			}
		}

		// The prior-status guard runs under the same row lock as the
		// update, so concurrent approvals post at most one bonus.
		if p.Status == StatusApproved && prior != StatusApproved {
			return s.postReferralBonusTx(ctx, tx, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)

	detail, err := s.repo.GetDetail(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", paymentID.String()).
		Str("status", string(detail.Status)).
		Str("amount", detail.Amount.String()).
		Msg("payment settled")

	if s.pub != nil {
		s.pub.Publish(events.Event{
			Entity: "payment",
			ID:     detail.ID,
			Status: string(detail.Status),
			Amount: detail.Amount,
			At:     time.Now(),
		})
	}
	return detail, nil
}

func (s *Service) postReferralBonusTx(ctx context.Context, tx *sqlx.Tx, p *Payment) error {
	ref, err := s.referrals.FindCompletedByReferredUserTx(ctx, tx, p.UserID)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}

	bonus := referral.CalculateBonus(p.Amount)
	if !bonus.IsPositive() {
		return nil
	}

	_, err = s.wallets.CreditTx(ctx, tx, ref.ReferrerID, bonus, "referral bonus", p.ID, wallet.ReferencePayment)
	if err != nil {
		return err
	}

	log.Info().
		Str("payment_id", p.ID.String()).
		Str("referrer_id", ref.ReferrerID.String()).
		Str("bonus", bonus.String()).
		Msg("referral bonus posted")
	return nil
}

// Delete removes a pending payment outright. Payments that have already
// been processed keep their row and are cancelled instead, preserving the
// audit trail.
func (s *Service) Delete(ctx context.Context, paymentID uuid.UUID) (*DeleteResult, error) {
	var result DeleteResult

	err := database.WithinTxRetry(ctx, s.db, func(tx *sqlx.Tx) error {
		result = DeleteResult{}

		p, err := s.repo.GetForUpdateTx(ctx, tx, paymentID)
		if err != nil {
			return err
		}

		if p.Status == StatusPending {
			if err := s.repo.DeleteTx(ctx, tx, paymentID); err != nil {
				return err
			}
			result.Deleted = true
			return nil
		}

		p.Status = StatusRejected
		p.AdminNotes = sql.NullString{String: cancelledByAdminNote, Valid: true}
		p.ProcessedAt = sql.NullTime{Time: time.Now(), Valid: true}
		if err := s.repo.UpdateTx(ctx, tx, p); err != nil {
			return err
		}
		result.Cancelled = true
		result.Payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)

	log.Info().
		Str("payment_id", paymentID.String()).
		Bool("deleted", result.Deleted).
		Bool("cancelled", result.Cancelled).
		Msg("payment removed")
	return &result, nil
}

// BulkSettle applies one decision to a set of payments in a single
// transaction; each payment's referral bonus is evaluated independently.
// Ids that match no payment are skipped: nothing is mutated for them and
// the response count tells the caller how many rows were touched.
func (s *Service) BulkSettle(ctx context.Context, ids []uuid.UUID, status Status, adminNotes *string) ([]Detail, error) {
	var settledIDs []uuid.UUID

	err := database.WithinTxRetry(ctx, s.db, func(tx *sqlx.Tx) error {
		settledIDs = settledIDs[:0]

		payments, err := s.repo.ListForUpdateTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(payments) == 0 {
			return ErrNoneFound
		}

		for i := range payments {
			p := &payments[i]
			prior := p.Status

			p.Status = status
			if adminNotes != nil {
				p.AdminNotes = sql.NullString{String: *adminNotes, Valid: true}
			}
			p.ProcessedAt = sql.NullTime{Time: time.Now(), Valid: true}

			if err := s.repo.UpdateTx(ctx, tx, p); err != nil {
				return err
			}

			if p.Status == StatusApproved && prior != StatusApproved {
				if err := s.postReferralBonusTx(ctx, tx, p); err != nil {
					return err
				}
			}
			settledIDs = append(settledIDs, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)

	details := make([]Detail, 0, len(settledIDs))
	for _, id := range settledIDs {
		d, err := s.repo.GetDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)

		if s.pub != nil {
			s.pub.Publish(events.Event{
				Entity: "payment",
				ID:     d.ID,
				Status: string(d.Status),
				Amount: d.Amount,
				At:     time.Now(),
			})
		}
	}

	log.Info().
		Int("requested", len(ids)).
		Int("settled", len(details)).
		Str("status", string(status)).
		Msg("bulk payment settlement")
	return details, nil
}

// CreatePending records a new pending payment for a program purchase
func (s *Service) CreatePending(ctx context.Context, userID, programID uuid.UUID, amount decimal.Decimal) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	p := &Payment{
		ID:        uuid.New(),
		UserID:    userID,
		ProgramID: programID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)

	log.Info().
		Str("payment_id", p.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Msg("pending payment created")
	return p, nil
}

// Get returns a payment with projections
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns payments for the admin console
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]Detail, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// ListByUser returns a member's own payments
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Detail, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Export returns payments matching the filter
func (s *Service) Export(ctx context.Context, f ExportFilter) (*ExportResult, error) {
	details, err := s.repo.Export(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Payments:     details,
		ExportedAt:   time.Now(),
		TotalRecords: len(details),
	}, nil
}

// StatsCached returns dashboard stats, served from Redis when fresh
func (s *Service) StatsCached(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var cached Stats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.repo.CountsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("failed to cache payment stats")
			}
		}
	}
	return stats, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate payment stats cache")
	}
}
