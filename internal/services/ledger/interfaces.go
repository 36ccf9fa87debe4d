package ledger

import (
	"context"

	"qirsh/internal/models"
	"qirsh/internal/repositories"
	"qirsh/internal/repositories/cache"
	"qirsh/internal/services/gateway"

	"github.com/shopspring/decimal"
)

// Service is the reconciliation engine interface exposed to handlers.
type Service interface {
	// Reads
	GetWallet(ctx context.Context, ownerID uint) (*models.Wallet, error)
	GetBalance(ctx context.Context, ownerID uint) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, ownerID uint, filter ListFilter) ([]models.WalletTransaction, int64, error)
	GetTransactionByNumber(ctx context.Context, number string) (*models.WalletTransaction, error)
	GetWalletStats(ctx context.Context) (*repositories.WalletStats, error)

	// Money movement
	InitiateDeposit(ctx context.Context, ownerID uint, amount decimal.Decimal, method string, customer gateway.Customer) (*DepositResult, error)
	ProcessPurchase(ctx context.Context, ownerID uint, amount decimal.Decimal, referenceType, referenceID string) (*PurchaseResult, error)
	ProcessRefund(ctx context.Context, ownerID uint, amount decimal.Decimal, referenceType, referenceID string) (*models.WalletTransaction, error)

	// Reconciliation
	HandleCallback(ctx context.Context, rawPayload []byte, signature string) CallbackResult
	SyncTransactionStatus(ctx context.Context, transactionID uint) (*SyncResult, error)
	RegisterCallbackDomain(prefix string, domain Domain, handler CallbackHandler)

	// Operator actions
	AdjustBalance(ctx context.Context, ownerID uint, signedAmount decimal.Decimal, reason string, actorID uint) (*AdjustResult, error)
	CompleteManually(ctx context.Context, transactionID uint, actorID uint) (*models.WalletTransaction, error)
	FreezeWallet(ctx context.Context, ownerID uint, reason string) (*models.Wallet, error)
	UnfreezeWallet(ctx context.Context, ownerID uint) (*models.Wallet, error)
}

// Gateway is the slice of the gateway adapter the engine depends on.
type Gateway interface {
	CreateIntention(ctx context.Context, req gateway.IntentionRequest) (*gateway.IntentionResult, error)
	QueryStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error)
	ParseCallback(raw []byte) (*gateway.Callback, error)
	VerifySignature(fields map[string]interface{}, signature string) bool
}

// CacheOperator is the wallet cache and event fan-out the engine uses.
type CacheOperator interface {
	GetWallet(ctx context.Context, ownerID uint) (*models.Wallet, bool, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, ownerID uint) error
	PublishTransactionEvent(ctx context.Context, event cache.TransactionEvent) error
}
