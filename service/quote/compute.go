package quote

import (
	"lending/core"
	"lending/pkg/number"

	"github.com/shopspring/decimal"
)

const (
	usdPrecision   = 8
	pricePrecision = 8
)

// Terms inputs of a quote
type Terms struct {
	BorrowAmount          decimal.Decimal
	BorrowPrice           decimal.Decimal
	CollateralPrice       decimal.Decimal
	CollateralDecimals    int32
	TargetLTV             decimal.Decimal
	MarginCallLTV         decimal.Decimal
	LiquidationLTV        decimal.Decimal
	MonthlyRate           decimal.Decimal // percent
	OriginationFeePercent decimal.Decimal
}

// Compute fill the economics of the quote from the terms
//
//	collateral = borrowAmount * borrowPrice / targetLTV / collateralPrice
//	thresholdPrice = (loanUSD / thresholdLTV) / collateral
func Compute(quote *core.Quote, t Terms) error {
	if !number.Positive(t.BorrowAmount) {
		return core.ErrInvalidAmount
	}

	if !number.Positive(t.BorrowPrice) || !number.Positive(t.CollateralPrice) {
		return core.ErrInvalidPrice
	}

	if !number.Positive(t.TargetLTV) || !number.Positive(t.MarginCallLTV) || !number.Positive(t.LiquidationLTV) {
		return core.ErrInvalidArgument
	}

	decimals := t.CollateralDecimals
	if decimals <= 0 {
		decimals = 8
	}

	loanUSD := t.BorrowAmount.Mul(t.BorrowPrice)
	collateralUSD := loanUSD.DivRound(t.TargetLTV, 16)
	collateral := number.Ceil(collateralUSD.DivRound(t.CollateralPrice, 18), decimals)

	quote.BorrowAmount = t.BorrowAmount
	quote.BorrowPrice = t.BorrowPrice
	quote.CollateralPrice = t.CollateralPrice
	quote.TargetLTV = t.TargetLTV
	quote.MarginCallLTV = t.MarginCallLTV
	quote.LiquidationLTV = t.LiquidationLTV
	quote.LoanUSD = loanUSD.Round(usdPrecision)
	quote.CollateralAmount = collateral
	quote.CollateralUSD = collateralUSD.Round(usdPrecision)

	marginCallUSD := loanUSD.DivRound(t.MarginCallLTV, 16)
	liquidationUSD := loanUSD.DivRound(t.LiquidationLTV, 16)
	quote.MarginCallCollateralUSD = marginCallUSD.Round(usdPrecision)
	quote.LiquidationCollateralUSD = liquidationUSD.Round(usdPrecision)
	quote.MarginCallPrice = marginCallUSD.DivRound(collateral, pricePrecision)
	quote.LiquidationPrice = liquidationUSD.DivRound(collateral, pricePrecision)

	quote.MonthlyRate = t.MonthlyRate
	quote.MonthlyInterest = number.Percent(t.BorrowAmount, t.MonthlyRate)
	quote.OriginationFee = number.Percent(t.BorrowAmount, t.OriginationFeePercent)
	return nil
}
