package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds engine configuration.
type Config struct {
	GatewayTimeout time.Duration
}

// DepositResult is returned from InitiateDeposit; the transaction stays
// PENDING until a webhook or sync resolves it.
type DepositResult struct {
	TransactionNumber string `json:"transaction_number"`
	CheckoutURL       string `json:"checkout_url"`
	Status            string `json:"status"`
}

// PurchaseResult is a structured outcome: insufficient balance and frozen
// wallets are expected cases, not system failures.
type PurchaseResult struct {
	Success           bool            `json:"success"`
	TransactionNumber string          `json:"transaction_number,omitempty"`
	NewBalance        decimal.Decimal `json:"new_balance"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

// AdjustResult reports an operator correction.
type AdjustResult struct {
	TransactionNumber string          `json:"transaction_number"`
	PreviousBalance   decimal.Decimal `json:"previous_balance"`
	NewBalance        decimal.Decimal `json:"new_balance"`
}

// SyncResult is the outcome of a manual status sync. Verified is false
// when the gateway could not be consulted (no external id yet, or the
// call failed); callers retry later.
type SyncResult struct {
	Status     string           `json:"status"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
	Verified   bool             `json:"verified"`
	Note       string           `json:"note,omitempty"`
}

// CallbackResult reports what the engine did with a webhook. Accepted is
// what the transport answers; Disposition is what telemetry records.
type CallbackResult struct {
	Accepted    bool   `json:"accepted"`
	Disposition string `json:"-"`
	Reference   string `json:"-"`
}

// ListFilter narrows transaction listings.
type ListFilter struct {
	Type   string
	Status string
	Page   int
	Limit  int
}
