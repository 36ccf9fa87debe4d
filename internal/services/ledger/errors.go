package ledger

import "errors"

// Service errors
var (
	ErrReasonRequired      = errors.New("adjustment reason is required")
	ErrNotPendingDeposit   = errors.New("transaction is not a pending deposit")
	ErrTransactionResolved = errors.New("transaction already resolved")
	ErrDepositInitFailed   = errors.New("deposit initiation failed")
)
