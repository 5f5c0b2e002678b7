package service

import "errors"

// Request-scoped failure taxonomy surfaced to the HTTP layer. Wrap with %w so
// handlers can classify via errors.Is; anything else is an internal fault.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidState      = errors.New("invalid state")
	ErrMarketClosed      = errors.New("market is closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotResolved       = errors.New("market not resolved")
	ErrNothingToClaim    = errors.New("no unclaimed positions")
)
