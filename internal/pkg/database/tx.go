package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// WithinTx runs fn inside a single transaction. Rollback happens on any
// error from fn; commit errors are returned as-is.
func WithinTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// WithinTxRetry runs fn inside a transaction and retries exactly once when
// the store aborts it with a serialization or deadlock failure. A second
// failure is surfaced to the caller.
func WithinTxRetry(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	err := WithinTx(ctx, db, fn)
	if err != nil && IsRetryable(err) {
		return WithinTx(ctx, db, fn)
	}
	return err
}

// IsRetryable reports whether err is a transient transaction abort
// (serialization_failure or deadlock_detected).
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
