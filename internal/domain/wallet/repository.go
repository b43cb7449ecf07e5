package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db       *sqlx.DB
	currency string
}

func NewRepository(db *sqlx.DB, currency string) *Repository {
	return &Repository{db: db, currency: currency}
}

// EnsureWallet creates a zero-balance wallet for the user if absent
func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, currency)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, r.currency)
	return err
}

// GetByUser returns the user's wallet, creating it lazily
func (r *Repository) GetByUser(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if err := r.EnsureWallet(ctx, userID); err != nil {
		return nil, err
	}

	var w Wallet
	err := r.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// LockWalletTx upserts the user's wallet and locks the row for the rest of
// the transaction. Every balance mutation goes through this lock.
func (r *Repository) LockWalletTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, currency)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, r.currency); err != nil {
		return nil, err
	}

	var w Wallet
	err := tx.GetContext(ctx, &w, `SELECT * FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreditTx increases the wallet balance and appends the matching credit
// ledger entry, all inside the caller's transaction. Used for deposit
// approvals and referral bonus payouts.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, description string, referenceID uuid.UUID, referenceType string) (*Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	w, err := r.LockWalletTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	w.Balance = w.Balance.Add(amount)
	if err := r.updateBalanceTx(ctx, tx, w.ID, w.Balance); err != nil {
		return nil, err
	}

	if err := r.insertLedgerTx(ctx, tx, w.ID, amount, LedgerCredit, description, referenceID, referenceType); err != nil {
		return nil, err
	}
	return w, nil
}

// DebitTx decreases the wallet balance and appends the matching debit ledger
// entry. The funds check happens under the same row lock as the decrement,
// so concurrent withdrawals cannot overdraw the wallet.
func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount decimal.Decimal, description string, referenceID uuid.UUID, referenceType string) (*Wallet, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	w, err := r.LockWalletTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	w.Balance = w.Balance.Sub(amount)
	if err := r.updateBalanceTx(ctx, tx, w.ID, w.Balance); err != nil {
		return nil, err
	}

	if err := r.insertLedgerTx(ctx, tx, w.ID, amount, LedgerDebit, description, referenceID, referenceType); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *Repository) updateBalanceTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2`, balance, walletID)
	return err
}

func (r *Repository) insertLedgerTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, amount decimal.Decimal, entryType LedgerEntryType, description string, referenceID uuid.UUID, referenceType string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger_entries (id, wallet_id, amount, type, description, reference_id, reference_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), walletID, amount, entryType, description, referenceID, referenceType)
	return err
}

// CreateTransaction stores a new pending deposit or withdrawal request
func (r *Repository) CreateTransaction(ctx context.Context, t *Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, type, amount, status, receipt_key, receipt_url, receipt_status, card_number, card_holder_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.UserID, t.Type, t.Amount, t.Status, t.ReceiptKey, t.ReceiptURL, t.ReceiptStatus, t.CardNumber, t.CardHolderName, t.CreatedAt)
	return err
}

// GetTransaction returns a transaction by id
func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `SELECT * FROM wallet_transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetTransactionForUpdateTx locks a transaction row for decision. The
// status check and the update must see the same row version.
func (r *Repository) GetTransactionForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := tx.GetContext(ctx, &t, `SELECT * FROM wallet_transactions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// UpdateTransactionDecisionTx records the admin decision on a transaction
func (r *Repository) UpdateTransactionDecisionTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status TransactionStatus, adminNotes *string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET status = $2,
		    admin_notes = COALESCE($3, admin_notes),
		    processed_at = now()
		WHERE id = $1
	`, id, status, adminNotes)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// ListTransactions returns transactions for the admin console, newest first
func (r *Repository) ListTransactions(ctx context.Context, status TransactionStatus, txnType TransactionType, limit, offset int) ([]Transaction, error) {
	query := `SELECT * FROM wallet_transactions`
	args := []interface{}{}
	var conditions []string
	if status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if txnType != "" {
		args = append(args, txnType)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	var txns []Transaction
	err := r.db.SelectContext(ctx, &txns, query, args...)
	return txns, err
}

// ListTransactionsByUser returns a member's own requests
func (r *Repository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	var txns []Transaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT * FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return txns, err
}

// LedgerEntries returns the wallet's audit trail, newest first
func (r *Repository) LedgerEntries(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM wallet_ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	return entries, err
}

// LedgerSum returns the signed sum of all ledger entries for a wallet
// (credits positive, debits negative). Must reconcile with the balance.
func (r *Repository) LedgerSum(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END), 0)
		FROM wallet_ledger_entries
		WHERE wallet_id = $1
	`, walletID)
	return sum, err
}
