package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus quote status
type QuoteStatus string

const (
	// QuoteStatusActive can be consumed
	QuoteStatusActive QuoteStatus = "ACTIVE"
	// QuoteStatusUsed consumed by a loan
	QuoteStatusUsed QuoteStatus = "USED"
	// QuoteStatusExpired expired
	QuoteStatusExpired QuoteStatus = "EXPIRED"
	// QuoteStatusCancelled cancelled by the user
	QuoteStatusCancelled QuoteStatus = "CANCELLED"
)

// Quote loan offer snapshot
type Quote struct {
	ID                uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"-"`
	TraceID           string          `sql:"size:36;unique_index:idx_quotes_trace" json:"id"`
	UserID            string          `sql:"size:36;index:idx_quotes_user" json:"user_id"`
	BorrowSymbol      string          `sql:"size:32" json:"borrow_symbol"`
	BorrowNetwork     string          `sql:"size:32" json:"borrow_network"`
	BorrowAmount      decimal.Decimal `sql:"type:decimal(40,18)" json:"borrow_amount"`
	CollateralSymbol  string          `sql:"size:32" json:"collateral_symbol"`
	CollateralNetwork string          `sql:"size:32" json:"collateral_network"`
	// loan / collateral
	TargetLTV       decimal.Decimal `sql:"type:decimal(20,8)" json:"target_ltv"`
	BorrowPrice     decimal.Decimal `sql:"type:decimal(32,16)" json:"borrow_price"`
	CollateralPrice decimal.Decimal `sql:"type:decimal(32,16)" json:"collateral_price"`
	LoanUSD         decimal.Decimal `sql:"type:decimal(40,18)" json:"loan_usd"`
	// required collateral tokens
	CollateralAmount         decimal.Decimal `sql:"type:decimal(40,18)" json:"collateral_amount"`
	CollateralUSD            decimal.Decimal `sql:"type:decimal(40,18)" json:"collateral_usd"`
	MarginCallLTV            decimal.Decimal `sql:"type:decimal(20,8)" json:"margin_call_ltv"`
	LiquidationLTV           decimal.Decimal `sql:"type:decimal(20,8)" json:"liquidation_ltv"`
	MarginCallCollateralUSD  decimal.Decimal `sql:"type:decimal(40,18)" json:"margin_call_collateral_usd"`
	LiquidationCollateralUSD decimal.Decimal `sql:"type:decimal(40,18)" json:"liquidation_collateral_usd"`
	// collateral unit price at which the threshold is hit
	MarginCallPrice  decimal.Decimal `sql:"type:decimal(32,16)" json:"margin_call_price"`
	LiquidationPrice decimal.Decimal `sql:"type:decimal(32,16)" json:"liquidation_price"`
	TermMonths       int             `json:"term_months"`
	// monthly interest rate percent
	MonthlyRate     decimal.Decimal `sql:"type:decimal(20,8)" json:"monthly_rate"`
	MonthlyInterest decimal.Decimal `sql:"type:decimal(40,18)" json:"monthly_interest"`
	OriginationFee  decimal.Decimal `sql:"type:decimal(40,18)" json:"origination_fee"`
	Status          QuoteStatus     `sql:"size:16;index:idx_quotes_status" json:"status"`
	Version         int64           `sql:"default:0" json:"-"`
	CreatedAt       time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// CollateralRatio collateral / loan, the inverse LTV convention
func (q *Quote) CollateralRatio() decimal.Decimal {
	if q.TargetLTV.IsZero() {
		return decimal.Zero
	}

	return decimal.NewFromInt(1).DivRound(q.TargetLTV, 8)
}

// QuoteRequest quote request
type QuoteRequest struct {
	BorrowSymbol     string          `json:"borrow_symbol" valid:"required"`
	BorrowNetwork    string          `json:"borrow_network" valid:"required"`
	BorrowAmount     decimal.Decimal `json:"borrow_amount"`
	CollateralSymbol string          `json:"collateral_symbol" valid:"required"`
	// defaults to the borrow network when the collateral lives there too
	CollateralNetwork string `json:"collateral_network"`
}

// QuoteStore quote store interface
type QuoteStore interface {
	Create(ctx context.Context, quote *Quote) error
	// Find returns an empty quote (ID == 0) when not found
	Find(ctx context.Context, traceID string) (*Quote, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Quote, error)
	// UpdateStatus from => to, false when the quote is no longer in from
	UpdateStatus(ctx context.Context, quote *Quote, from, to QuoteStatus) (bool, error)
	// ExpireBefore ACTIVE quotes created before t => EXPIRED
	ExpireBefore(ctx context.Context, t time.Time) (int64, error)
}

// QuoteService quote engine
type QuoteService interface {
	Quote(ctx context.Context, user *User, req *QuoteRequest) (*Quote, error)
	Cancel(ctx context.Context, user *User, quoteID string) error
}
