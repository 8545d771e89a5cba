package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Balance per (user, asset) ledger balance
type Balance struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"-"`
	UserID    string          `sql:"size:36;unique_index:idx_balances_user_symbol" json:"user_id"`
	Symbol    string          `sql:"size:32;unique_index:idx_balances_user_symbol" json:"symbol"`
	Available decimal.Decimal `sql:"type:decimal(40,18);default:0" json:"available"`
	Locked    decimal.Decimal `sql:"type:decimal(40,18);default:0" json:"locked"`
	Version   int64           `sql:"default:0" json:"-"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BalanceStore balance store interface
//
// balances are only mutated through atomic increments
type BalanceStore interface {
	// Find returns a zero balance when the row does not exist
	Find(ctx context.Context, userID, symbol string) (*Balance, error)
	ListByUser(ctx context.Context, userID string) ([]*Balance, error)
	// Credit available += amount, creating the row when missing
	Credit(ctx context.Context, userID, symbol string, amount decimal.Decimal) error
	// Debit available -= amount only if available >= amount, otherwise a
	// DeficitError wrapping ErrInsufficientBalance
	Debit(ctx context.Context, userID, symbol string, amount decimal.Decimal) error
}
