package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. Amounts are stored positive; the type implies the
// direction the balance moves.
const (
	TransactionTypeDeposit    = "DEPOSIT"
	TransactionTypePurchase   = "PURCHASE"
	TransactionTypeRefund     = "REFUND"
	TransactionTypeAdjustment = "ADJUSTMENT"
	TransactionTypeWithdrawal = "WITHDRAWAL"
)

// Transaction statuses. COMPLETED and FAILED are terminal.
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
	TransactionStatusCancelled = "CANCELLED"
)

// WalletTransaction is an append-mostly ledger entry. Once status leaves
// PENDING the row, including its balance snapshots, is immutable.
type WalletTransaction struct {
	ID                    uint            `gorm:"primarykey" json:"id"`
	TransactionNumber     string          `gorm:"uniqueIndex;size:32;not null" json:"transaction_number"`
	WalletID              uint            `gorm:"index;not null" json:"wallet_id"`
	Type                  string          `gorm:"size:16;not null" json:"type"`
	Status                string          `gorm:"size:16;not null;default:'PENDING'" json:"status"`
	Amount                decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	BalanceBefore         decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"balance_before"`
	BalanceAfter          decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"balance_after"`
	Currency              string          `gorm:"size:3;not null;default:'EGP'" json:"currency"`
	ExternalTransactionID *string         `gorm:"index" json:"external_transaction_id,omitempty"`
	ReferenceType         string          `gorm:"size:32" json:"reference_type,omitempty"`
	ReferenceID           string          `gorm:"size:64" json:"reference_id,omitempty"`
	FailureReason         string          `json:"failure_reason,omitempty"`
	Metadata              JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	ProcessedAt           *time.Time      `json:"processed_at,omitempty"`
}

// IsTerminal reports whether the transaction can no longer change state.
func (t *WalletTransaction) IsTerminal() bool {
	return t.Status != TransactionStatusPending
}

// SignedAmount is the effect this transaction has on the wallet balance
// when completed: positive for credits, negative for debits. Adjustments
// carry their direction in metadata written at creation time, reflected
// in the balance snapshots.
func (t *WalletTransaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeRefund:
		return t.Amount
	case TransactionTypePurchase, TransactionTypeWithdrawal:
		return t.Amount.Neg()
	case TransactionTypeAdjustment:
		return t.BalanceAfter.Sub(t.BalanceBefore)
	default:
		return decimal.Zero
	}
}
