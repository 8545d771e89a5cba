package quote

import (
	"context"
	"errors"
	"testing"

	"lending/core"
	"lending/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeExample(t *testing.T) {
	var q core.Quote
	require.Nil(t, Compute(&q, Terms{
		BorrowAmount:          d("100"),
		BorrowPrice:           d("1"),
		CollateralPrice:       d("2500"),
		CollateralDecimals:    18,
		TargetLTV:             d("0.5"),
		MarginCallLTV:         d("0.7"),
		LiquidationLTV:        d("0.8"),
		MonthlyRate:           d("1.5"),
		OriginationFeePercent: d("1"),
	}))

	assert.Equal(t, "0.08", q.CollateralAmount.String())
	assert.Equal(t, "200", q.CollateralUSD.String())
	assert.Equal(t, "1785.71", q.MarginCallPrice.Round(2).String())
	assert.Equal(t, "1562.5", q.LiquidationPrice.String())
	assert.Equal(t, "1.5", q.MonthlyInterest.String())
	assert.Equal(t, "1", q.OriginationFee.String())
	assert.Equal(t, "2", q.CollateralRatio().String())
}

func TestComputeDoubleCollateral(t *testing.T) {
	cases := []struct {
		amount, borrowPrice, collateralPrice string
	}{
		{"100", "1", "2500"},
		{"0.37", "64012.33", "3.1"},
		{"12345.678", "0.9998", "171.42"},
		{"1", "1", "0.0003"},
	}

	for _, c := range cases {
		var q core.Quote
		require.Nil(t, Compute(&q, Terms{
			BorrowAmount:       d(c.amount),
			BorrowPrice:        d(c.borrowPrice),
			CollateralPrice:    d(c.collateralPrice),
			CollateralDecimals: 8,
			TargetLTV:          d("0.5"),
			MarginCallLTV:      d("0.7"),
			LiquidationLTV:     d("0.8"),
		}))

		want := d(c.amount).Mul(d(c.borrowPrice)).Mul(d("2"))
		got := q.CollateralAmount.Mul(d(c.collateralPrice))
		// rounding up the collateral to 8 decimals
		tolerance := d(c.collateralPrice).Shift(-8)
		assert.True(t, got.GreaterThanOrEqual(want), c.amount)
		assert.True(t, got.Sub(want).LessThanOrEqual(tolerance), c.amount)
	}
}

func TestComputeRejects(t *testing.T) {
	var q core.Quote
	terms := Terms{
		BorrowAmount:    d("0"),
		BorrowPrice:     d("1"),
		CollateralPrice: d("1"),
		TargetLTV:       d("0.5"),
		MarginCallLTV:   d("0.7"),
		LiquidationLTV:  d("0.8"),
	}
	assert.Equal(t, core.ErrInvalidAmount, Compute(&q, terms))

	terms.BorrowAmount = d("1")
	terms.CollateralPrice = decimal.Zero
	assert.Equal(t, core.ErrInvalidPrice, Compute(&q, terms))
}

type fixedPrices map[string]decimal.Decimal

func (p fixedPrices) Price(ctx context.Context, network, symbol string) (decimal.Decimal, error) {
	if price, ok := p[symbol]; ok {
		return price, nil
	}

	return decimal.Zero, core.ErrInvalidPrice
}

func newService(t *testing.T) (core.QuoteService, *memory.DB) {
	ctx := context.Background()
	db := memory.New(nil)

	usdt := &core.Asset{Symbol: "USDT", Network: "ethereum", ContractAddress: "0xdac17f958d2ee523a2206206994597c13d831ec7", Decimals: 6, Status: core.AssetStatusListed}
	usdt.SetRateTable(map[int]decimal.Decimal{1: d("2"), 12: d("1.5")})
	require.Nil(t, db.Assets().Save(ctx, usdt))
	require.Nil(t, db.Assets().AddLiquidity(ctx, usdt, d("1000")))

	eth := &core.Asset{Symbol: "ETH", Network: "ethereum", Decimals: 18, Status: core.AssetStatusListed}
	require.Nil(t, db.Assets().Save(ctx, eth))

	cfg := &core.Config{
		Quote: core.QuoteConfig{
			TargetLTV:             0.5,
			MarginCallLTV:         0.7,
			LiquidationLTV:        0.8,
			OriginationFeePercent: 1,
			TermMonths:            12,
			Networks:              []string{"ethereum"},
		},
		FeeTiers: map[string]*core.FeeTier{
			"gold": {InterestDiscount: 10},
		},
	}

	prices := fixedPrices{"USDT": d("1"), "ETH": d("2500")}
	return New(cfg, db.Assets(), db.Quotes(), prices), db
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	s, db := newService(t)

	user := &core.User{UserID: "u1", Tier: "gold"}
	quote, err := s.Quote(ctx, user, &core.QuoteRequest{
		BorrowSymbol:     "usdt",
		BorrowNetwork:    "ethereum",
		BorrowAmount:     d("100"),
		CollateralSymbol: "ETH",
	})
	require.Nil(t, err)

	assert.Equal(t, core.QuoteStatusActive, quote.Status)
	assert.Equal(t, "0.08", quote.CollateralAmount.String())
	assert.Equal(t, "ethereum", quote.CollateralNetwork)
	// 1.5% monthly with a 10% tier discount
	assert.Equal(t, "1.35", quote.MonthlyRate.String())
	assert.Equal(t, "1.35", quote.MonthlyInterest.String())

	stored, _ := db.Quotes().Find(ctx, quote.TraceID)
	assert.Equal(t, quote.UserID, stored.UserID)
}

func TestQuoteRejects(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	user := &core.User{UserID: "u1"}

	_, err := s.Quote(ctx, user, &core.QuoteRequest{BorrowSymbol: "USDT", BorrowNetwork: "tron", BorrowAmount: d("1"), CollateralSymbol: "ETH"})
	assert.Equal(t, core.ErrUnsupportedNetwork, err)

	_, err = s.Quote(ctx, user, &core.QuoteRequest{BorrowSymbol: "DOGE", BorrowNetwork: "ethereum", BorrowAmount: d("1"), CollateralSymbol: "ETH"})
	assert.Equal(t, core.ErrAssetNotListed, err)

	_, err = s.Quote(ctx, user, &core.QuoteRequest{BorrowSymbol: "USDT", BorrowNetwork: "ethereum", BorrowAmount: d("-1"), CollateralSymbol: "ETH"})
	assert.Equal(t, core.ErrInvalidAmount, err)

	_, err = s.Quote(ctx, user, &core.QuoteRequest{BorrowSymbol: "USDT", BorrowNetwork: "ethereum", BorrowAmount: d("5000"), CollateralSymbol: "ETH"})
	var deficit *core.DeficitError
	require.True(t, errors.As(err, &deficit))
	assert.True(t, errors.Is(err, core.ErrInsufficientLiquidity))
	assert.Equal(t, "4000", deficit.Deficit().String())
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	s, db := newService(t)
	user := &core.User{UserID: "u1"}

	quote, err := s.Quote(ctx, user, &core.QuoteRequest{BorrowSymbol: "USDT", BorrowNetwork: "ethereum", BorrowAmount: d("10"), CollateralSymbol: "ETH"})
	require.Nil(t, err)

	assert.Equal(t, core.ErrQuoteNotFound, s.Cancel(ctx, &core.User{UserID: "u2"}, quote.TraceID))
	assert.Nil(t, s.Cancel(ctx, user, quote.TraceID))
	assert.Nil(t, s.Cancel(ctx, user, quote.TraceID))

	stored, _ := db.Quotes().Find(ctx, quote.TraceID)
	assert.Equal(t, core.QuoteStatusCancelled, stored.Status)
}
