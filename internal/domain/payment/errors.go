package payment

import "errors"

var (
	ErrNotFound      = errors.New("payment not found")
	ErrNoneFound     = errors.New("no payments found")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyDecision = errors.New("decision has no fields to apply")
)
