// Package testenv wires the in-memory ledger, a simulated chain and a mock
// clock into a ready to use lending environment for tests
package testenv

import (
	"context"
	"testing"
	"time"

	"lending/core"
	"lending/pkg/clock"
	"lending/pkg/id"
	"lending/pkg/sealer"
	"lending/service/chain"
	"lending/service/chain/simulated"
	loanservice "lending/service/loan"
	"lending/service/wallet"
	"lending/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	// Network simulated network of every asset
	Network = "ethereum"
	// USDTContract token contract of the borrow asset
	USDTContract = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	// CustodyAddress platform custody address
	CustodyAddress = "0x00000000000000000000000000000000000000cc"
)

// Env test environment
type Env struct {
	Config  *core.Config
	DB      *memory.DB
	Ledger  core.Ledger
	Clock   *clock.Mock
	Chain   *simulated.Chain
	Chains  core.ChainRegistry
	Wallets core.WalletService
	Loans   core.LoanService
	User    *core.User
}

// D parse a decimal
func D(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// New environment at 2024-01-15 10:00 UTC with 1000 USDT liquidity and a
// listed ETH collateral asset
func New(t *testing.T) *Env {
	ctx := context.Background()
	clk := clock.NewMock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	db := memory.New(clk)
	sim := simulated.New(Network)

	cfg := &core.Config{
		Loan: core.LoanConfig{CollateralTimeoutSeconds: 3600},
		Quote: core.QuoteConfig{
			TargetLTV:      0.5,
			MarginCallLTV:  0.7,
			LiquidationLTV: 0.8,
			TermMonths:     12,
			Networks:       []string{Network},
			TTLSeconds:     3600,
		},
		FeeTiers: map[string]*core.FeeTier{
			core.DefaultTier: {ReceiveFeePercent: 1},
			"gold":           {InterestDiscount: 10},
		},
		Chains: []*core.ChainConfig{
			{Network: Network, Kind: core.ChainKindSimulated, CustodyAddress: CustodyAddress},
		},
	}

	usdt := &core.Asset{
		Symbol:          "USDT",
		Network:         Network,
		ContractAddress: USDTContract,
		Decimals:        6,
		Status:          core.AssetStatusListed,
		Price:           D("1"),
		CustodyAddress:  CustodyAddress,
	}
	usdt.SetRateTable(map[int]decimal.Decimal{1: D("2"), 12: D("1.5")})
	require.Nil(t, db.Assets().Save(ctx, usdt))
	require.Nil(t, db.Assets().AddLiquidity(ctx, usdt, D("1000")))

	require.Nil(t, db.Assets().Save(ctx, &core.Asset{
		Symbol:         "ETH",
		Network:        Network,
		Decimals:       18,
		Status:         core.AssetStatusListed,
		Price:          D("2500"),
		CustodyAddress: CustodyAddress,
	}))

	registry := chain.NewRegistry(sim)
	wallets := wallet.New(cfg, registry, db.Wallets(), sealer.New("secret"))
	ledger := memory.Ledger(db)

	user := &core.User{UserID: "u1"}
	require.Nil(t, db.Users().Create(ctx, user))

	return &Env{
		Config:  cfg,
		DB:      db,
		Ledger:  ledger,
		Clock:   clk,
		Chain:   sim,
		Chains:  registry,
		Wallets: wallets,
		Loans:   loanservice.New(cfg, clk, ledger, registry, wallets),
		User:    user,
	}
}

// Quote store an ACTIVE quote borrowing 100 USDT against 0.08 ETH
func (e *Env) Quote(t *testing.T) *core.Quote {
	q := &core.Quote{
		TraceID:           id.GenTraceID(),
		UserID:            e.User.UserID,
		BorrowSymbol:      "USDT",
		BorrowNetwork:     Network,
		BorrowAmount:      D("100"),
		CollateralSymbol:  "ETH",
		CollateralNetwork: Network,
		CollateralAmount:  D("0.08"),
		TargetLTV:         D("0.5"),
		BorrowPrice:       D("1"),
		CollateralPrice:   D("2500"),
		LoanUSD:           D("100"),
		CollateralUSD:     D("200"),
		MarginCallLTV:     D("0.7"),
		LiquidationLTV:    D("0.8"),
		MonthlyRate:       D("1.5"),
		OriginationFee:    D("1"),
		TermMonths:        12,
		Status:            core.QuoteStatusActive,
	}
	require.Nil(t, e.DB.Quotes().Create(context.Background(), q))
	return q
}

// PendingLoan loan waiting for its collateral
func (e *Env) PendingLoan(t *testing.T) *core.Loan {
	loan, err := e.Loans.Create(context.Background(), e.User, &core.CreateLoanRequest{QuoteID: e.Quote(t).TraceID})
	require.Nil(t, err)
	return loan
}

// ActiveLoan loan funded with 0.08 ETH from the user's balance
func (e *Env) ActiveLoan(t *testing.T) *core.Loan {
	ctx := context.Background()
	loan := e.PendingLoan(t)
	require.Nil(t, e.DB.Balances().Credit(ctx, e.User.UserID, "ETH", D("0.08")))

	loan, err := e.Loans.DepositCollateral(ctx, e.User, loan.TraceID, D("0.08"))
	require.Nil(t, err)
	require.Equal(t, core.LoanStatusActive, loan.Status)
	return loan
}

// Balance available balance of the user
func (e *Env) Balance(symbol string) string {
	b, _ := e.DB.Balances().Find(context.Background(), e.User.UserID, symbol)
	return b.Available.String()
}

// Transactions transactions of the loan with the type
func (e *Env) Transactions(t *testing.T, loanID string, typ core.TransactionType) []*core.Transaction {
	txs, err := e.DB.Transactions().ListByLoan(context.Background(), loanID)
	require.Nil(t, err)

	var out []*core.Transaction
	for _, tx := range txs {
		if tx.Type == typ {
			out = append(out, tx)
		}
	}

	return out
}

// Prices fixed price service
type Prices map[string]decimal.Decimal

// Price price of the symbol, ErrInvalidPrice when unknown
func (p Prices) Price(ctx context.Context, network, symbol string) (decimal.Decimal, error) {
	if v, ok := p[symbol]; ok {
		return v, nil
	}

	return decimal.Zero, core.ErrInvalidPrice
}
