package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fitcore/fitcore-api/internal/domain/events"
	"github.com/fitcore/fitcore-api/internal/pkg/database"
	"github.com/fitcore/fitcore-api/internal/pkg/storage"
)

// Service settles admin decisions on wallet transactions and manages
// member deposit/withdrawal requests. All money movement is transactional:
// transaction status, wallet balance and ledger entry commit together or
// not at all.
type Service struct {
	db    *sqlx.DB
	repo  *Repository
	store storage.Storage
	pub   events.Publisher
	wake  *redis.Client
}

// ReceiptWakeChannel is the pub/sub channel that nudges the receipt worker
// when a new receipt lands. Polling still runs regardless.
const ReceiptWakeChannel = "receipts:uploaded"

func NewService(db *sqlx.DB, repo *Repository, store storage.Storage, pub events.Publisher, wake *redis.Client) *Service {
	return &Service{db: db, repo: repo, store: store, pub: pub, wake: wake}
}

// SettleTransaction applies an admin decision to a pending transaction.
// Approving a deposit credits the wallet; approving a withdrawal debits it
// after a funds check under the wallet row lock. An insufficient balance
// rejects the action and leaves the transaction pending. Rejection updates
// status only.
func (s *Service) SettleTransaction(ctx context.Context, id uuid.UUID, action string, adminNotes *string) (*Transaction, error) {
	if action != "approve" && action != "reject" {
		return nil, ErrInvalidAction
	}

	err := database.WithinTxRetry(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.repo.GetTransactionForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !t.IsPending() {
			return ErrNotPending
		}

		if action == "reject" {
			return s.repo.UpdateTransactionDecisionTx(ctx, tx, id, StatusRejected, adminNotes)
		}

		switch t.Type {
		case TypeDeposit:
			if _, err := s.repo.CreditTx(ctx, tx, t.UserID, t.Amount, "wallet deposit", t.ID, ReferenceTransaction); err != nil {
				return err
			}
		case TypeWithdrawal:
			if _, err := s.repo.DebitTx(ctx, tx, t.UserID, t.Amount, "wallet withdrawal", t.ID, ReferenceTransaction); err != nil {
				return err
			}
		}

		return s.repo.UpdateTransactionDecisionTx(ctx, tx, id, StatusApproved, adminNotes)
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", id.String()).
		Str("action", action).
		Str("type", string(t.Type)).
		Str("amount", t.Amount.String()).
		Msg("wallet transaction settled")

	if s.pub != nil {
		s.pub.Publish(events.Event{
			Entity: "wallet_transaction",
			ID:     t.ID,
			Status: string(t.Status),
			Amount: t.Amount,
			At:     time.Now(),
		})
	}

	return t, nil
}

// CreateDeposit records a pending deposit request
func (s *Service) CreateDeposit(ctx context.Context, userID uuid.UUID, req CreateDepositRequest) (*Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	t := &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      TypeDeposit,
		Amount:    req.Amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	if req.ReceiptKey != "" {
		t.ReceiptKey.String = req.ReceiptKey
		t.ReceiptKey.Valid = true
		t.ReceiptStatus.String = "pending"
		t.ReceiptStatus.Valid = true
		if s.store != nil {
			t.ReceiptURL.String = s.store.PublicURL(req.ReceiptKey)
			t.ReceiptURL.Valid = true
		}
	}

	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	if s.wake != nil && t.ReceiptKey.Valid {
		if err := s.wake.Publish(ctx, ReceiptWakeChannel, t.ID.String()).Err(); err != nil {
			log.Warn().Err(err).Msg("receipt worker wake-up failed")
		}
	}

	log.Info().
		Str("transaction_id", t.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", t.Amount.String()).
		Msg("deposit request created")
	return t, nil
}

// CreateWithdrawal records a pending withdrawal request
func (s *Service) CreateWithdrawal(ctx context.Context, userID uuid.UUID, req CreateWithdrawalRequest) (*Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	t := &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      TypeWithdrawal,
		Amount:    req.Amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	t.CardNumber.String = req.CardNumber
	t.CardNumber.Valid = true
	t.CardHolderName.String = req.CardHolderName
	t.CardHolderName.Valid = true

	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", t.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", t.Amount.String()).
		Msg("withdrawal request created")
	return t, nil
}

// Balance returns the member's wallet, creating it lazily
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetByUser(ctx, userID)
}

// Ledger returns the member's ledger history
func (s *Service) Ledger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	w, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.LedgerEntries(ctx, w.ID, limit, offset)
}

// ListTransactions returns transactions for the admin console
func (s *Service) ListTransactions(ctx context.Context, status TransactionStatus, txnType TransactionType, limit, offset int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, status, txnType, limit, offset)
}

// ListUserTransactions returns a member's own requests
func (s *Service) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	return s.repo.ListTransactionsByUser(ctx, userID, limit, offset)
}

// receiptExtensions maps accepted receipt uploads to object key suffixes
var receiptExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// PresignReceipt returns an object key and a presigned upload URL so the
// member uploads the deposit receipt directly to storage.
func (s *Service) PresignReceipt(ctx context.Context, userID uuid.UUID, contentType string) (key, uploadURL string, err error) {
	if s.store == nil {
		return "", "", ErrStorageUnavailable
	}
	ext, ok := receiptExtensions[contentType]
	if !ok {
		return "", "", ErrUnsupportedReceipt
	}

	key = "receipts/" + userID.String() + "/" + uuid.New().String() + ext
	uploadURL, err = s.store.PresignPut(ctx, key, contentType, 15*time.Minute)
	if err != nil {
		return "", "", err
	}
	return key, uploadURL, nil
}

// Reconcile recomputes the ledger sum for a user's wallet and reports it
// alongside the stored balance.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID) (balance, ledgerSum decimal.Decimal, err error) {
	w, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	sum, err := s.repo.LedgerSum(ctx, w.ID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return w.Balance, sum, nil
}
