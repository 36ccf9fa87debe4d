package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds the single balance kept per account owner. Balance is
// stored as NUMERIC and only ever mutated through the ledger repository's
// Commit/Adjust paths.
type Wallet struct {
	ID               uint                `gorm:"primarykey" json:"id"`
	OwnerID          uint                `gorm:"uniqueIndex;not null" json:"owner_id"`
	Balance          decimal.Decimal     `gorm:"type:numeric(20,4);not null;default:0" json:"balance"`
	Currency         string              `gorm:"size:3;not null;default:'EGP'" json:"currency"`
	IsFrozen         bool                `gorm:"not null;default:false" json:"is_frozen"`
	FrozenReason     string              `gorm:"default:''" json:"frozen_reason,omitempty"`
	MaxBalance       decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"max_balance,omitempty"`
	TotalDeposits    decimal.Decimal     `gorm:"type:numeric(20,4);not null;default:0" json:"total_deposits"`
	TotalWithdrawals decimal.Decimal     `gorm:"type:numeric(20,4);not null;default:0" json:"total_withdrawals"`
	TotalPurchases   decimal.Decimal     `gorm:"type:numeric(20,4);not null;default:0" json:"total_purchases"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// New wallets always start empty regardless of what the caller set.
	w.Balance = decimal.Zero
	w.TotalDeposits = decimal.Zero
	w.TotalWithdrawals = decimal.Zero
	w.TotalPurchases = decimal.Zero
	return nil
}

// HasRoom reports whether crediting amount would stay under the optional
// balance ceiling.
func (w *Wallet) HasRoom(amount decimal.Decimal) bool {
	if !w.MaxBalance.Valid {
		return true
	}
	return w.Balance.Add(amount).LessThanOrEqual(w.MaxBalance.Decimal)
}
