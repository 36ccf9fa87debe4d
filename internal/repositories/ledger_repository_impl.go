package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qirsh/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db       *gorm.DB
	numbers  NumberSource
	currency string
}

// NewLedgerRepository creates the ledger store backed by PostgreSQL.
// Wallets created through it carry the given currency.
func NewLedgerRepository(db *gorm.DB, numbers NumberSource, currency string) LedgerRepository {
	if db == nil {
		panic("db is required")
	}
	if numbers == nil {
		panic("number source is required")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &ledgerRepository{db: db, numbers: numbers, currency: currency}
}

func (r *ledgerRepository) GetOrCreate(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where(models.Wallet{OwnerID: ownerID}).
		Attrs(models.Wallet{Currency: r.currency}).
		FirstOrCreate(&wallet).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetByOwnerID(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetByID(ctx context.Context, walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) SetFrozen(ctx context.Context, ownerID uint, frozen bool, reason string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		wallet.IsFrozen = frozen
		if frozen {
			wallet.FrozenReason = reason
		} else {
			wallet.FrozenReason = ""
		}
		return tx.Save(&wallet).Error
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *ledgerRepository) RecordPending(ctx context.Context, req PendingRequest) (*models.WalletTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var record models.WalletTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&wallet, req.WalletID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		if wallet.IsFrozen {
			return ErrWalletFrozen
		}
		if req.Type == models.TransactionTypeDeposit && !wallet.HasRoom(req.Amount) {
			return ErrBalanceCeiling
		}

		number, err := r.numbers.Next(tx, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to mint transaction number: %w", err)
		}

		record = models.WalletTransaction{
			TransactionNumber: number,
			WalletID:          wallet.ID,
			Type:              req.Type,
			Status:            models.TransactionStatusPending,
			Amount:            req.Amount,
			BalanceBefore:     wallet.Balance,
			BalanceAfter:      wallet.Balance, // placeholder until commit
			Currency:          wallet.Currency,
			ReferenceType:     req.ReferenceType,
			ReferenceID:       req.ReferenceID,
			Metadata:          req.Metadata,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *ledgerRepository) SetExternalID(ctx context.Context, transactionID uint, externalID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", transactionID, models.TransactionStatusPending).
		Update("external_transaction_id", externalID)
	if result.Error != nil {
		return fmt.Errorf("failed to set external id: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Commit is the only path that mutates Wallet.Balance for gateway-backed
// transactions. The row lock on the WalletTransaction closes the race
// between duplicate webhooks and manual sync: the loser re-reads a
// terminal status and returns without writing.
func (r *ledgerRepository) Commit(ctx context.Context, transactionID uint, outcome CommitOutcome) (*models.WalletTransaction, bool, error) {
	var record models.WalletTransaction
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		if record.IsTerminal() {
			// Already resolved, nothing to do.
			return nil
		}

		var wallet models.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&wallet, record.WalletID).Error; err != nil {
			return err
		}

		if !resolveOutcome(&record, &wallet, outcome, time.Now().UTC()) {
			return nil
		}

		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		if record.Status == models.TransactionStatusCompleted {
			if err := tx.Save(&wallet).Error; err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &record, applied, nil
}

func (r *ledgerRepository) CommitImmediate(ctx context.Context, req ImmediateRequest) (*models.WalletTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var record models.WalletTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ?", req.OwnerID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		signed := signedEffect(req.Type, req.Amount)
		if signed.IsNegative() {
			if wallet.IsFrozen {
				return ErrWalletFrozen
			}
			if wallet.Balance.Add(signed).IsNegative() {
				return ErrInsufficientBalance
			}
		}

		number, err := r.numbers.Next(tx, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to mint transaction number: %w", err)
		}

		now := time.Now().UTC()
		newBalance := wallet.Balance.Add(signed)
		record = models.WalletTransaction{
			TransactionNumber: number,
			WalletID:          wallet.ID,
			Type:              req.Type,
			Status:            models.TransactionStatusCompleted,
			Amount:            req.Amount,
			BalanceBefore:     wallet.Balance,
			BalanceAfter:      newBalance,
			Currency:          wallet.Currency,
			ReferenceType:     req.ReferenceType,
			ReferenceID:       req.ReferenceID,
			Metadata:          req.Metadata,
			ProcessedAt:       &now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		wallet.Balance = newBalance
		applyAggregate(&wallet, req.Type, req.Amount)
		return tx.Save(&wallet).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Adjust bypasses the freeze gate on purpose: the freeze stops
// self-service activity, not operator correction.
func (r *ledgerRepository) Adjust(ctx context.Context, req AdjustRequest) (*models.WalletTransaction, error) {
	if req.SignedAmount.IsZero() {
		return nil, ErrInvalidAmount
	}

	var record models.WalletTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ?", req.OwnerID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		newBalance := wallet.Balance.Add(req.SignedAmount)
		if newBalance.IsNegative() {
			return ErrNegativeBalance
		}

		number, err := r.numbers.Next(tx, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to mint transaction number: %w", err)
		}

		now := time.Now().UTC()
		record = models.WalletTransaction{
			TransactionNumber: number,
			WalletID:          wallet.ID,
			Type:              models.TransactionTypeAdjustment,
			Status:            models.TransactionStatusCompleted,
			Amount:            req.SignedAmount.Abs(),
			BalanceBefore:     wallet.Balance,
			BalanceAfter:      newBalance,
			Currency:          wallet.Currency,
			Metadata: models.NewJSON(map[string]interface{}{
				"actor_id": req.ActorID,
				"reason":   req.Reason,
			}),
			ProcessedAt: &now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		wallet.Balance = newBalance
		if req.SignedAmount.IsPositive() {
			wallet.TotalDeposits = wallet.TotalDeposits.Add(req.SignedAmount)
		} else {
			wallet.TotalWithdrawals = wallet.TotalWithdrawals.Add(req.SignedAmount.Abs())
		}
		return tx.Save(&wallet).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *ledgerRepository) GetTransactionByID(ctx context.Context, id uint) (*models.WalletTransaction, error) {
	var record models.WalletTransaction
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &record, nil
}

func (r *ledgerRepository) GetTransactionByNumber(ctx context.Context, number string) (*models.WalletTransaction, error) {
	var record models.WalletTransaction
	if err := r.db.WithContext(ctx).Where("transaction_number = ?", number).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &record, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, walletID uint, filter TransactionFilter) ([]models.WalletTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("wallet_id = ?", walletID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var records []models.WalletTransaction
	err := query.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return records, total, nil
}

func (r *ledgerRepository) GetWalletStats(ctx context.Context) (*WalletStats, error) {
	var stats WalletStats
	db := r.db.WithContext(ctx).Model(&models.Wallet{})
	if err := db.Count(&stats.WalletCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count wallets: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("is_frozen = true").Count(&stats.FrozenCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count frozen wallets: %w", err)
	}
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Select("COALESCE(SUM(balance), 0)").Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to sum balances: %w", err)
	}
	stats.TotalBalance = total.Decimal
	return &stats, nil
}

// resolveOutcome applies a terminal outcome to a locked PENDING record
// and its wallet, in memory. It returns false without touching either
// when the record is already terminal, so a losing committer is a no-op
// regardless of where the status was re-read. A completion that would
// drive the balance negative is recorded as FAILED instead; the wallet
// is mutated only on a completed resolution.
func resolveOutcome(record *models.WalletTransaction, wallet *models.Wallet, outcome CommitOutcome, now time.Time) bool {
	if record.IsTerminal() {
		return false
	}

	record.ProcessedAt = &now
	if outcome.ExternalID != nil {
		record.ExternalTransactionID = outcome.ExternalID
	}
	if outcome.ActorID != 0 {
		if record.Metadata == nil {
			record.Metadata = models.JSON{}
		}
		record.Metadata["resolved_by"] = outcome.ActorID
	}

	status := outcome.Status
	reason := outcome.FailureReason
	newBalance := wallet.Balance

	if status == models.TransactionStatusCompleted {
		newBalance = wallet.Balance.Add(signedEffect(record.Type, record.Amount))
		if newBalance.IsNegative() {
			status = models.TransactionStatusFailed
			reason = "insufficient balance at settlement"
			newBalance = wallet.Balance
		}
	}

	record.Status = status
	record.FailureReason = reason
	record.BalanceBefore = wallet.Balance
	record.BalanceAfter = newBalance

	if status == models.TransactionStatusCompleted {
		wallet.Balance = newBalance
		applyAggregate(wallet, record.Type, record.Amount)
	}
	return true
}

// signedEffect maps a transaction type and positive amount to its balance
// delta on completion.
func signedEffect(txType string, amount decimal.Decimal) decimal.Decimal {
	switch txType {
	case models.TransactionTypeDeposit, models.TransactionTypeRefund:
		return amount
	case models.TransactionTypePurchase, models.TransactionTypeWithdrawal:
		return amount.Neg()
	default:
		return decimal.Zero
	}
}

func applyAggregate(w *models.Wallet, txType string, amount decimal.Decimal) {
	switch txType {
	case models.TransactionTypeDeposit:
		w.TotalDeposits = w.TotalDeposits.Add(amount)
	case models.TransactionTypePurchase:
		w.TotalPurchases = w.TotalPurchases.Add(amount)
	case models.TransactionTypeWithdrawal:
		w.TotalWithdrawals = w.TotalWithdrawals.Add(amount)
	case models.TransactionTypeRefund:
		w.TotalPurchases = w.TotalPurchases.Sub(amount)
	}
}
