package wallet

import "errors"

var (
	ErrTransactionNotFound = errors.New("wallet transaction not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrNotPending          = errors.New("transaction is not pending")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAction       = errors.New("invalid action")
	ErrUnsupportedReceipt  = errors.New("unsupported receipt content type")
	ErrStorageUnavailable  = errors.New("receipt storage not configured")
)
