package repositories

import "errors"

// Sentinel errors surfaced by the ledger repository. Callers distinguish
// expected business outcomes (frozen, insufficient, ceiling) from real
// failures with errors.Is.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWalletFrozen        = errors.New("wallet is frozen")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceCeiling      = errors.New("amount exceeds wallet balance limit")
	ErrNegativeBalance     = errors.New("operation would drive balance negative")
	ErrInvalidAmount       = errors.New("amount must be positive")
)
