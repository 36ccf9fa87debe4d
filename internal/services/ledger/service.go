package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"qirsh/internal/models"
	"qirsh/internal/repositories"
	"qirsh/internal/repositories/cache"
	"qirsh/internal/services/gateway"
	"qirsh/internal/services/txnumber"

	"github.com/shopspring/decimal"
)

type service struct {
	repo    repositories.LedgerRepository
	gateway Gateway
	cache   CacheOperator
	config  Config
	metrics MetricsCollector
	domains *DomainTable
	numbers *txnumber.Generator
}

// NewService creates the reconciliation engine.
func NewService(
	repo repositories.LedgerRepository,
	gw Gateway,
	cacheOp CacheOperator,
	config Config,
	metrics MetricsCollector,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if gw == nil {
		panic("gateway is required")
	}
	if cacheOp == nil {
		panic("cache is required")
	}
	if config.GatewayTimeout == 0 {
		config.GatewayTimeout = DefaultGatewayTimeout
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	s := &service{
		repo:    repo,
		gateway: gw,
		cache:   cacheOp,
		config:  config,
		metrics: metrics,
		domains: NewDomainTable(),
		numbers: txnumber.New(),
	}

	// The engine owns only the wallet-transaction numbering domain.
	// Orders and invoices register their own handlers at startup.
	s.domains.Register(s.numbers.Prefix(), DomainWalletTransaction, s.resolveWalletCallback)

	return s
}

func (s *service) GetWallet(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	if wallet, hit, err := s.cache.GetWallet(ctx, ownerID); err == nil && hit {
		return wallet, nil
	}

	wallet, err := s.repo.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if err := s.cache.SetWallet(ctx, wallet); err != nil {
		log.Printf("failed to cache wallet for owner %d: %v", ownerID, err)
	}
	return wallet, nil
}

func (s *service) GetBalance(ctx context.Context, ownerID uint) (decimal.Decimal, error) {
	wallet, err := s.GetWallet(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

func (s *service) ListTransactions(ctx context.Context, ownerID uint, filter ListFilter) ([]models.WalletTransaction, int64, error) {
	wallet, err := s.repo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return []models.WalletTransaction{}, 0, nil
		}
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListPageSize
	}
	if limit > MaxListPageSize {
		limit = MaxListPageSize
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	return s.repo.ListTransactions(ctx, wallet.ID, repositories.TransactionFilter{
		Type:   filter.Type,
		Status: filter.Status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
}

func (s *service) GetTransactionByNumber(ctx context.Context, number string) (*models.WalletTransaction, error) {
	return s.repo.GetTransactionByNumber(ctx, number)
}

func (s *service) GetWalletStats(ctx context.Context) (*repositories.WalletStats, error) {
	return s.repo.GetWalletStats(ctx)
}

// InitiateDeposit starts a gateway-backed deposit. The transaction stays
// PENDING until a webhook or sync resolves it; abandoning the wait does
// not abandon the money.
func (s *service) InitiateDeposit(ctx context.Context, ownerID uint, amount decimal.Decimal, method string, customer gateway.Customer) (*DepositResult, error) {
	wallet, err := s.repo.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	pending, err := s.repo.RecordPending(ctx, repositories.PendingRequest{
		WalletID: wallet.ID,
		Type:     models.TransactionTypeDeposit,
		Amount:   amount,
		Metadata: models.NewJSON(map[string]interface{}{
			"payment_method": method,
		}),
	})
	if err != nil {
		s.metrics.RecordError("initiate_deposit", "record_pending")
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	// Intention creation is never retried here: a duplicate intention can
	// double-charge. The PENDING row is failed and the caller retries with
	// a fresh deposit.
	intention, err := s.gateway.CreateIntention(gctx, gateway.IntentionRequest{
		Amount:        amount,
		Currency:      wallet.Currency,
		CorrelationID: pending.TransactionNumber,
		Customer:      customer,
		Method:        method,
	})
	if err != nil {
		if _, _, cErr := s.repo.Commit(ctx, pending.ID, repositories.CommitOutcome{
			Status:        models.TransactionStatusFailed,
			FailureReason: fmt.Sprintf("gateway intention failed: %v", err),
		}); cErr != nil {
			log.Printf("failed to fail deposit %s after gateway error: %v", pending.TransactionNumber, cErr)
		}
		s.metrics.RecordError("initiate_deposit", "gateway")
		return nil, fmt.Errorf("%w: %v", ErrDepositInitFailed, err)
	}

	if err := s.repo.SetExternalID(ctx, pending.ID, intention.ExternalID); err != nil {
		// The webhook path still resolves by transaction number; only the
		// sync fallback is degraded until then.
		log.Printf("failed to persist external id for %s: %v", pending.TransactionNumber, err)
	}

	s.metrics.RecordOperation("initiate_deposit", "ok")
	return &DepositResult{
		TransactionNumber: pending.TransactionNumber,
		CheckoutURL:       intention.CheckoutURL,
		Status:            models.TransactionStatusPending,
	}, nil
}

// ProcessPurchase debits the wallet synchronously. Insufficient balance
// and frozen wallets are expected outcomes reported in the result.
func (s *service) ProcessPurchase(ctx context.Context, ownerID uint, amount decimal.Decimal, referenceType, referenceID string) (*PurchaseResult, error) {
	wallet, err := s.repo.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	record, err := s.repo.CommitImmediate(ctx, repositories.ImmediateRequest{
		OwnerID:       ownerID,
		Type:          models.TransactionTypePurchase,
		Amount:        amount,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInsufficientBalance):
			s.metrics.RecordOperation("purchase", "insufficient_balance")
			return &PurchaseResult{Success: false, NewBalance: wallet.Balance, ErrorMessage: "insufficient balance"}, nil
		case errors.Is(err, repositories.ErrWalletFrozen):
			s.metrics.RecordOperation("purchase", "wallet_frozen")
			return &PurchaseResult{Success: false, NewBalance: wallet.Balance, ErrorMessage: "wallet is frozen"}, nil
		}
		s.metrics.RecordError("purchase", "commit")
		return nil, err
	}

	s.afterTerminal(ctx, record)
	return &PurchaseResult{
		Success:           true,
		TransactionNumber: record.TransactionNumber,
		NewBalance:        record.BalanceAfter,
	}, nil
}

// ProcessRefund credits back a prior purchase's reference. The engine
// records the ledger side only; returning money upstream, if any, is the
// payment module's concern.
func (s *service) ProcessRefund(ctx context.Context, ownerID uint, amount decimal.Decimal, referenceType, referenceID string) (*models.WalletTransaction, error) {
	if _, err := s.repo.GetOrCreate(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	record, err := s.repo.CommitImmediate(ctx, repositories.ImmediateRequest{
		OwnerID:       ownerID,
		Type:          models.TransactionTypeRefund,
		Amount:        amount,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
	})
	if err != nil {
		s.metrics.RecordError("refund", "commit")
		return nil, err
	}

	s.afterTerminal(ctx, record)
	return record, nil
}

// SyncTransactionStatus is the fallback for deposits whose webhook never
// arrived. It applies the same commit as the webhook path, so calling it
// twice (or racing a late webhook) settles the balance exactly once.
func (s *service) SyncTransactionStatus(ctx context.Context, transactionID uint) (*SyncResult, error) {
	record, err := s.repo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if record.IsTerminal() {
		balance := record.BalanceAfter
		return &SyncResult{Status: record.Status, NewBalance: &balance, Verified: true, Note: "already resolved"}, nil
	}

	if record.ExternalTransactionID == nil {
		return &SyncResult{Status: record.Status, Verified: false, Note: "no external transaction id yet, retry later"}, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	status, err := s.gateway.QueryStatus(gctx, *record.ExternalTransactionID)
	if err != nil {
		// Cannot verify yet; the caller retries. Local state is untouched.
		log.Printf("sync: gateway query failed for %s: %v", record.TransactionNumber, err)
		s.metrics.RecordError("sync", "gateway")
		return &SyncResult{Status: record.Status, Verified: false, Note: "gateway unreachable, retry later"}, nil
	}

	if status.Pending {
		return &SyncResult{Status: record.Status, Verified: true, Note: "gateway still pending"}, nil
	}

	outcome := repositories.CommitOutcome{Status: models.TransactionStatusCompleted}
	if !status.Success {
		outcome.Status = models.TransactionStatusFailed
		outcome.FailureReason = status.ErrorMessage
		if outcome.FailureReason == "" {
			outcome.FailureReason = "gateway reported failure"
		}
	}

	resolved, applied, err := s.repo.Commit(ctx, record.ID, outcome)
	if err != nil {
		return nil, err
	}
	if applied {
		s.afterTerminal(ctx, resolved)
	}

	balance := resolved.BalanceAfter
	return &SyncResult{Status: resolved.Status, NewBalance: &balance, Verified: true}, nil
}

// AdjustBalance applies an operator-signed delta. It works on frozen
// wallets: the freeze stops self-service activity, and correction is how
// operators dig a frozen wallet out.
func (s *service) AdjustBalance(ctx context.Context, ownerID uint, signedAmount decimal.Decimal, reason string, actorID uint) (*AdjustResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	if _, err := s.repo.GetOrCreate(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	record, err := s.repo.Adjust(ctx, repositories.AdjustRequest{
		OwnerID:      ownerID,
		SignedAmount: signedAmount,
		Reason:       reason,
		ActorID:      actorID,
	})
	if err != nil {
		return nil, err
	}

	s.afterTerminal(ctx, record)
	return &AdjustResult{
		TransactionNumber: record.TransactionNumber,
		PreviousBalance:   record.BalanceBefore,
		NewBalance:        record.BalanceAfter,
	}, nil
}

// CompleteManually force-resolves a stuck PENDING deposit after an
// operator verified payment out-of-band.
func (s *service) CompleteManually(ctx context.Context, transactionID uint, actorID uint) (*models.WalletTransaction, error) {
	record, err := s.repo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if record.Type != models.TransactionTypeDeposit {
		return nil, ErrNotPendingDeposit
	}
	if record.IsTerminal() {
		return nil, ErrTransactionResolved
	}

	resolved, applied, err := s.repo.Commit(ctx, record.ID, repositories.CommitOutcome{
		Status:  models.TransactionStatusCompleted,
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race against a webhook or sync that resolved it first.
		return nil, ErrTransactionResolved
	}

	log.Printf("deposit %s completed manually by operator %d", resolved.TransactionNumber, actorID)
	s.afterTerminal(ctx, resolved)
	return resolved, nil
}

func (s *service) FreezeWallet(ctx context.Context, ownerID uint, reason string) (*models.Wallet, error) {
	wallet, err := s.repo.SetFrozen(ctx, ownerID, true, reason)
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateWallet(ctx, ownerID); err != nil {
		log.Printf("failed to invalidate wallet cache for owner %d: %v", ownerID, err)
	}
	return wallet, nil
}

func (s *service) UnfreezeWallet(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	wallet, err := s.repo.SetFrozen(ctx, ownerID, false, "")
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateWallet(ctx, ownerID); err != nil {
		log.Printf("failed to invalidate wallet cache for owner %d: %v", ownerID, err)
	}
	return wallet, nil
}

// afterTerminal invalidates the cached wallet and announces the terminal
// transaction to notification collaborators. Both are best-effort; the
// ledger write already committed.
func (s *service) afterTerminal(ctx context.Context, record *models.WalletTransaction) {
	wallet, err := s.repo.GetByID(ctx, record.WalletID)
	if err != nil {
		log.Printf("failed to load wallet %d after commit: %v", record.WalletID, err)
		return
	}

	if err := s.cache.InvalidateWallet(ctx, wallet.OwnerID); err != nil {
		log.Printf("failed to invalidate wallet cache for owner %d: %v", wallet.OwnerID, err)
	}

	event := cache.TransactionEvent{
		TransactionNumber: record.TransactionNumber,
		WalletID:          record.WalletID,
		OwnerID:           wallet.OwnerID,
		Type:              record.Type,
		Status:            record.Status,
		Amount:            record.Amount.String(),
		Currency:          record.Currency,
		OccurredAt:        time.Now().UTC(),
	}
	if err := s.cache.PublishTransactionEvent(ctx, event); err != nil {
		log.Printf("failed to publish event for %s: %v", record.TransactionNumber, err)
	}

	s.metrics.RecordTransaction(record.Type, record.Amount.String())
}
