package repositories

import (
	"testing"
	"time"

	"qirsh/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type staticNumbers struct{}

func (staticNumbers) Next(tx *gorm.DB, now time.Time) (string, error) {
	return "WTX-2026-000001", nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pendingRecord(txType, amount string) *models.WalletTransaction {
	return &models.WalletTransaction{
		ID:                11,
		TransactionNumber: "WTX-2026-000001",
		WalletID:          7,
		Type:              txType,
		Status:            models.TransactionStatusPending,
		Amount:            dec(amount),
		Currency:          "EGP",
	}
}

func ledgerWallet(balance string) *models.Wallet {
	return &models.Wallet{ID: 7, OwnerID: 42, Balance: dec(balance), Currency: "EGP"}
}

func TestResolveOutcome_CompletesDeposit(t *testing.T) {
	record := pendingRecord(models.TransactionTypeDeposit, "50")
	wallet := ledgerWallet("100")
	extID := "ext-9"
	now := time.Now().UTC()

	applied := resolveOutcome(record, wallet, CommitOutcome{
		Status:     models.TransactionStatusCompleted,
		ExternalID: &extID,
		ActorID:    3,
	}, now)

	require.True(t, applied)
	assert.Equal(t, models.TransactionStatusCompleted, record.Status)
	assert.True(t, record.BalanceBefore.Equal(dec("100")))
	assert.True(t, record.BalanceAfter.Equal(dec("150")))
	assert.True(t, wallet.Balance.Equal(dec("150")))
	assert.True(t, wallet.TotalDeposits.Equal(dec("50")))
	require.NotNil(t, record.ProcessedAt)
	assert.Equal(t, now, *record.ProcessedAt)
	require.NotNil(t, record.ExternalTransactionID)
	assert.Equal(t, "ext-9", *record.ExternalTransactionID)
	assert.Equal(t, uint(3), record.Metadata["resolved_by"])
}

func TestResolveOutcome_SecondResolutionIsNoOp(t *testing.T) {
	record := pendingRecord(models.TransactionTypeDeposit, "50")
	wallet := ledgerWallet("100")

	require.True(t, resolveOutcome(record, wallet, CommitOutcome{
		Status: models.TransactionStatusCompleted,
	}, time.Now().UTC()))

	// A duplicate webhook or racing sync re-commits the same transaction;
	// the balance must move exactly once.
	applied := resolveOutcome(record, wallet, CommitOutcome{
		Status: models.TransactionStatusCompleted,
	}, time.Now().UTC())

	assert.False(t, applied)
	assert.True(t, wallet.Balance.Equal(dec("150")))
	assert.True(t, wallet.TotalDeposits.Equal(dec("50")))
	assert.True(t, record.BalanceAfter.Equal(dec("150")))
}

func TestResolveOutcome_TerminalRecordUntouched(t *testing.T) {
	for _, status := range []string{
		models.TransactionStatusCompleted,
		models.TransactionStatusFailed,
		models.TransactionStatusCancelled,
	} {
		t.Run(status, func(t *testing.T) {
			record := pendingRecord(models.TransactionTypeDeposit, "50")
			record.Status = status
			wallet := ledgerWallet("100")

			applied := resolveOutcome(record, wallet, CommitOutcome{
				Status: models.TransactionStatusCompleted,
			}, time.Now().UTC())

			assert.False(t, applied)
			assert.Equal(t, status, record.Status)
			assert.Nil(t, record.ProcessedAt)
			assert.True(t, wallet.Balance.Equal(dec("100")))
			assert.True(t, wallet.TotalDeposits.IsZero())
		})
	}
}

func TestResolveOutcome_FailureLeavesBalance(t *testing.T) {
	record := pendingRecord(models.TransactionTypeDeposit, "50")
	wallet := ledgerWallet("100")

	applied := resolveOutcome(record, wallet, CommitOutcome{
		Status:        models.TransactionStatusFailed,
		FailureReason: "card declined",
	}, time.Now().UTC())

	require.True(t, applied)
	assert.Equal(t, models.TransactionStatusFailed, record.Status)
	assert.Equal(t, "card declined", record.FailureReason)
	assert.True(t, record.BalanceBefore.Equal(dec("100")))
	assert.True(t, record.BalanceAfter.Equal(dec("100")))
	assert.True(t, wallet.Balance.Equal(dec("100")))
	assert.True(t, wallet.TotalDeposits.IsZero())
}

func TestResolveOutcome_InsufficientAtSettlement(t *testing.T) {
	record := pendingRecord(models.TransactionTypeWithdrawal, "150")
	wallet := ledgerWallet("100")

	applied := resolveOutcome(record, wallet, CommitOutcome{
		Status: models.TransactionStatusCompleted,
	}, time.Now().UTC())

	require.True(t, applied)
	assert.Equal(t, models.TransactionStatusFailed, record.Status)
	assert.Equal(t, "insufficient balance at settlement", record.FailureReason)
	assert.True(t, record.BalanceAfter.Equal(dec("100")))
	assert.True(t, wallet.Balance.Equal(dec("100")))
	assert.True(t, wallet.TotalWithdrawals.IsZero())
}

func TestResolveOutcome_RefundReducesPurchaseAggregate(t *testing.T) {
	record := pendingRecord(models.TransactionTypeRefund, "30")
	wallet := ledgerWallet("100")
	wallet.TotalPurchases = dec("80")

	applied := resolveOutcome(record, wallet, CommitOutcome{
		Status: models.TransactionStatusCompleted,
	}, time.Now().UTC())

	require.True(t, applied)
	assert.True(t, wallet.Balance.Equal(dec("130")))
	assert.True(t, wallet.TotalPurchases.Equal(dec("50")))
}

func TestNewLedgerRepository_Currency(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		want     string
	}{
		{"defaults when unset", "", "EGP"},
		{"keeps configured currency", "USD", "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewLedgerRepository(&gorm.DB{}, staticNumbers{}, tt.currency)
			assert.Equal(t, tt.want, repo.(*ledgerRepository).currency)
		})
	}
}
