package repositories

import (
	"context"
	"time"

	"qirsh/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCurrency is assigned to wallets created without an explicit
// currency configured.
const DefaultCurrency = "EGP"

// NumberSource mints the next transaction number. Next must be called
// inside the same database transaction that inserts the row so that
// issuance serializes with the insert.
type NumberSource interface {
	Next(tx *gorm.DB, now time.Time) (string, error)
}

// PendingRequest describes a gateway-backed movement recorded ahead of
// the external outcome.
type PendingRequest struct {
	WalletID      uint
	Type          string
	Amount        decimal.Decimal
	ReferenceType string
	ReferenceID   string
	Metadata      models.JSON
}

// CommitOutcome resolves a PENDING transaction to a terminal status.
type CommitOutcome struct {
	Status        string // COMPLETED or FAILED
	ExternalID    *string
	FailureReason string
	// ActorID, when set, records the operator who forced the resolution.
	ActorID uint
}

// ImmediateRequest describes a synchronous movement (purchase, refund,
// withdrawal) that has no external step and completes in one unit.
type ImmediateRequest struct {
	OwnerID       uint
	Type          string
	Amount        decimal.Decimal
	ReferenceType string
	ReferenceID   string
	Metadata      models.JSON
}

// AdjustRequest is an operator-issued signed correction.
type AdjustRequest struct {
	OwnerID      uint
	SignedAmount decimal.Decimal
	Reason       string
	ActorID      uint
}

// TransactionFilter narrows and pages transaction listings.
type TransactionFilter struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

// WalletStats are aggregate figures for operator dashboards.
type WalletStats struct {
	WalletCount  int64
	FrozenCount  int64
	TotalBalance decimal.Decimal
}

// LedgerRepository is the Ledger Store: the only component allowed to
// mutate Wallet.Balance, always in the same database transaction as the
// WalletTransaction row it pairs with.
type LedgerRepository interface {
	GetOrCreate(ctx context.Context, ownerID uint) (*models.Wallet, error)
	GetByOwnerID(ctx context.Context, ownerID uint) (*models.Wallet, error)
	GetByID(ctx context.Context, walletID uint) (*models.Wallet, error)
	SetFrozen(ctx context.Context, ownerID uint, frozen bool, reason string) (*models.Wallet, error)

	RecordPending(ctx context.Context, req PendingRequest) (*models.WalletTransaction, error)
	SetExternalID(ctx context.Context, transactionID uint, externalID string) error

	// Commit resolves a PENDING transaction exactly once. The bool result
	// reports whether this call applied the transition; a second call on a
	// resolved transaction returns the terminal record unchanged with false.
	Commit(ctx context.Context, transactionID uint, outcome CommitOutcome) (*models.WalletTransaction, bool, error)

	CommitImmediate(ctx context.Context, req ImmediateRequest) (*models.WalletTransaction, error)
	Adjust(ctx context.Context, req AdjustRequest) (*models.WalletTransaction, error)

	GetTransactionByID(ctx context.Context, id uint) (*models.WalletTransaction, error)
	GetTransactionByNumber(ctx context.Context, number string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID uint, filter TransactionFilter) ([]models.WalletTransaction, int64, error)

	GetWalletStats(ctx context.Context) (*WalletStats, error)
}
