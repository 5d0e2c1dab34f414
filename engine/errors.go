package engine

import "errors"

// Rejection taxonomy. Every command is all-or-nothing: a rejected call
// leaves the account, book and journal exactly as they were.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrFillNotFound       = errors.New("fill not found")
)
