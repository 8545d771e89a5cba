package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus loan status
type LoanStatus string

const (
	// LoanStatusPendingCollateral waiting for collateral
	LoanStatusPendingCollateral LoanStatus = "PENDING_COLLATERAL"
	// LoanStatusActive disbursed
	LoanStatusActive LoanStatus = "ACTIVE"
	// LoanStatusRepaid fully repaid
	LoanStatusRepaid LoanStatus = "REPAID"
	// LoanStatusCancelled cancelled before activation
	LoanStatusCancelled LoanStatus = "CANCELLED"
	// LoanStatusLiquidated liquidated
	LoanStatusLiquidated LoanStatus = "LIQUIDATED"
)

// Terminal no transition leaves a terminal status
func (s LoanStatus) Terminal() bool {
	switch s {
	case LoanStatusRepaid, LoanStatusCancelled, LoanStatusLiquidated:
		return true
	}

	return false
}

// PayoutMethod how principal is released
type PayoutMethod string

const (
	// PayoutInternal credit the user's ledger balance
	PayoutInternal PayoutMethod = "internal"
	// PayoutExternal broadcast to an on-chain address
	PayoutExternal PayoutMethod = "external"
)

// Loan lending position
type Loan struct {
	ID            uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"-"`
	TraceID       string `sql:"size:36;unique_index:idx_loans_trace" json:"id"`
	UserID        string `sql:"size:36;index:idx_loans_user" json:"user_id"`
	QuoteID       string `sql:"size:36;unique_index:idx_loans_quote" json:"quote_id"`
	BorrowSymbol  string `sql:"size:32" json:"borrow_symbol"`
	BorrowNetwork string `sql:"size:32" json:"borrow_network"`
	// outstanding principal, grows with accrual and shrinks with repayment
	Principal      decimal.Decimal `sql:"type:decimal(40,18)" json:"principal"`
	BorrowAmount   decimal.Decimal `sql:"type:decimal(40,18)" json:"borrow_amount"`
	MonthlyRate    decimal.Decimal `sql:"type:decimal(20,8)" json:"monthly_rate"`
	NextInterestAt *time.Time      `sql:"index:idx_loans_next_interest" json:"next_interest_at,omitempty"`
	OriginationFee decimal.Decimal `sql:"type:decimal(40,18)" json:"origination_fee"`

	CollateralSymbol   string          `sql:"size:32" json:"collateral_symbol"`
	CollateralNetwork  string          `sql:"size:32" json:"collateral_network"`
	CollateralExpected decimal.Decimal `sql:"type:decimal(40,18)" json:"collateral_expected"`
	CollateralReceived decimal.Decimal `sql:"type:decimal(40,18)" json:"collateral_received"`
	ReceivingAddress   string          `sql:"size:128" json:"receiving_address"`

	MarginCallLTV  decimal.Decimal `sql:"type:decimal(20,8)" json:"margin_call_ltv"`
	LiquidationLTV decimal.Decimal `sql:"type:decimal(20,8)" json:"liquidation_ltv"`

	// origination snapshot, never recomputed
	OriginBorrowPrice     decimal.Decimal `sql:"type:decimal(32,16)" json:"origin_borrow_price"`
	OriginCollateralPrice decimal.Decimal `sql:"type:decimal(32,16)" json:"origin_collateral_price"`
	OriginLoanUSD         decimal.Decimal `sql:"type:decimal(40,18)" json:"origin_loan_usd"`
	OriginCollateralUSD   decimal.Decimal `sql:"type:decimal(40,18)" json:"origin_collateral_usd"`

	PayoutMethod  PayoutMethod `sql:"size:16" json:"payout_method"`
	PayoutAddress string       `sql:"size:128" json:"payout_address,omitempty"`

	// alerts
	InterestAlert bool `json:"interest_alert"`
	// percent drop of the collateral price from origination
	CollateralDipAlert decimal.Decimal `sql:"type:decimal(20,8)" json:"collateral_dip_alert"`

	Status       LoanStatus `sql:"size:24;index:idx_loans_status" json:"status"`
	ExpiresAt    *time.Time `sql:"index:idx_loans_expires" json:"expires_at,omitempty"`
	DisbursedAt  *time.Time `json:"disbursed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	RepaidAt     *time.Time `json:"repaid_at,omitempty"`
	LiquidatedAt *time.Time `json:"liquidated_at,omitempty"`
	// CollateralReleasedAt set once the received collateral went back to the owner
	CollateralReleasedAt *time.Time `json:"collateral_released_at,omitempty"`
	Version              int64      `sql:"default:0" json:"-"`
	CreatedAt            time.Time  `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time  `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// AcceptsCollateral collateral may be added in this status
func (l *Loan) AcceptsCollateral() bool {
	return l.Status == LoanStatusPendingCollateral || l.Status == LoanStatusActive
}

// CollateralSufficient received collateral meets the expected amount
func (l *Loan) CollateralSufficient() bool {
	return l.CollateralReceived.GreaterThanOrEqual(l.CollateralExpected)
}

// LTV loan usd / collateral usd, infinite when the collateral is worthless
func (l *Loan) LTV(borrowPrice, collateralPrice decimal.Decimal) (ltv decimal.Decimal, infinite bool) {
	loanUSD := l.Principal.Mul(borrowPrice)
	collateralUSD := l.CollateralReceived.Mul(collateralPrice)
	if collateralUSD.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, true
	}

	return loanUSD.DivRound(collateralUSD, 16), false
}

// CreateLoanRequest create loan request
type CreateLoanRequest struct {
	QuoteID            string          `json:"quote_id" valid:"required"`
	PayoutMethod       PayoutMethod    `json:"payout_method" valid:"in(internal|external)"`
	PayoutAddress      string          `json:"payout_address"`
	InterestAlert      bool            `json:"interest_alert"`
	CollateralDipAlert decimal.Decimal `json:"collateral_dip_alert"`
}

// RepayRequest repay request, ChainTxID set for external repayments
type RepayRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	ChainTxID   string          `json:"tx_id"`
	BlockNumber int64           `json:"block_number"`
}

// LoanStore loan store interface
//
// all mutations are conditional, the bool result reports whether the
// condition held and the row changed
type LoanStore interface {
	Create(ctx context.Context, loan *Loan) error
	// Find returns an empty loan (ID == 0) when not found
	Find(ctx context.Context, traceID string) (*Loan, error)
	FindByQuote(ctx context.Context, quoteID string) (*Loan, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Loan, error)
	// ListByStatus loans with ID > from, ordered by ID
	ListByStatus(ctx context.Context, status LoanStatus, from uint64, limit int) ([]*Loan, error)
	// ListInterestDue ACTIVE loans with next_interest_at <= t and ID > from
	ListInterestDue(ctx context.Context, t time.Time, from uint64, limit int) ([]*Loan, error)
	// AddCollateral collateral_received += amount while PENDING_COLLATERAL or ACTIVE
	AddCollateral(ctx context.Context, loan *Loan, amount decimal.Decimal) (bool, error)
	// Activate PENDING_COLLATERAL => ACTIVE once collateral_received >= collateral_expected
	Activate(ctx context.Context, loan *Loan, at, nextInterestAt time.Time) (bool, error)
	// Cancel PENDING_COLLATERAL => CANCELLED
	Cancel(ctx context.Context, loan *Loan, at time.Time) (bool, error)
	// CancelExpired bulk PENDING_COLLATERAL & expires_at <= now => CANCELLED
	CancelExpired(ctx context.Context, now time.Time) (int64, error)
	// Liquidate ACTIVE => LIQUIDATED
	Liquidate(ctx context.Context, loan *Loan, at time.Time) (bool, error)
	// Accrue principal += interest, next_interest_at = next; guarded by the
	// principal & next_interest_at the interest was computed from
	Accrue(ctx context.Context, loan *Loan, interest decimal.Decimal, next time.Time) (bool, error)
	// Repay principal -= amount while ACTIVE and principal >= amount
	Repay(ctx context.Context, loan *Loan, amount decimal.Decimal) (bool, error)
	// MarkRepaid ACTIVE & principal <= 0 => REPAID
	MarkRepaid(ctx context.Context, loan *Loan, at time.Time) (bool, error)
	// ListUnreleased cancelled or repaid loans still holding collateral
	ListUnreleased(ctx context.Context, from uint64, limit int) ([]*Loan, error)
	MarkCollateralReleased(ctx context.Context, loan *Loan, at time.Time) (bool, error)
}

// LoanService loan lifecycle controller
type LoanService interface {
	Create(ctx context.Context, user *User, req *CreateLoanRequest) (*Loan, error)
	Find(ctx context.Context, user *User, loanID string) (*Loan, error)
	// CollateralReceived try to activate the loan after collateral arrived
	CollateralReceived(ctx context.Context, loanID string) (*Loan, error)
	// DepositCollateral move collateral from the user's available balance
	DepositCollateral(ctx context.Context, user *User, loanID string, amount decimal.Decimal) (*Loan, error)
	Repay(ctx context.Context, user *User, loanID string, req *RepayRequest) (*Loan, error)
	Cancel(ctx context.Context, user *User, loanID string) (*Loan, error)
	// ReleaseCollateral credit the received collateral of a repaid or
	// cancelled loan back to the owner, at most once
	ReleaseCollateral(ctx context.Context, loanID string) (*Loan, error)
}
