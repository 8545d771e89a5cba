package loan

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
	"lending/service/wallet"
	"lending/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type fixture struct {
	db    *memory.DB
	clock *clock.Mock
	chain *simulated.Chain
	svc   core.LoanService
	user  *core.User
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	clk := clock.NewMock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	db := memory.New(clk)
	sim := simulated.New("ethereum")

	cfg := &core.Config{
		Loan: core.LoanConfig{CollateralTimeoutSeconds: 3600},
		Chains: []*core.ChainConfig{
			{Network: "ethereum", Kind: core.ChainKindSimulated, CustodyAddress: "0x00000000000000000000000000000000000000cc"},
		},
	}

	usdt := &core.Asset{Symbol: "USDT", Network: "ethereum", ContractAddress: "0xdac17f958d2ee523a2206206994597c13d831ec7", Decimals: 6, Status: core.AssetStatusListed}
	require.Nil(t, db.Assets().Save(ctx, usdt))
	require.Nil(t, db.Assets().AddLiquidity(ctx, usdt, d("1000")))
	require.Nil(t, db.Assets().Save(ctx, &core.Asset{Symbol: "ETH", Network: "ethereum", Decimals: 18, Status: core.AssetStatusListed}))

	registry := chain.NewRegistry(sim)
	wallets := wallet.New(cfg, registry, db.Wallets(), sealer.New("secret"))

	return &fixture{
		db:    db,
		clock: clk,
		chain: sim,
		svc:   New(cfg, clk, memory.Ledger(db), registry, wallets),
		user:  &core.User{UserID: "u1"},
	}
}

func (f *fixture) quote(t *testing.T) *core.Quote {
	return f.quoteFor(t, d("100"), d("0.08"))
}

func (f *fixture) quoteFor(t *testing.T, amount, collateral decimal.Decimal) *core.Quote {
	q := &core.Quote{
		TraceID:           id.GenTraceID(),
		UserID:            f.user.UserID,
		BorrowSymbol:      "USDT",
		BorrowNetwork:     "ethereum",
		BorrowAmount:      amount,
		CollateralSymbol:  "ETH",
		CollateralNetwork: "ethereum",
		CollateralAmount:  collateral,
		BorrowPrice:       d("1"),
		CollateralPrice:   d("2500"),
		MarginCallLTV:     d("0.7"),
		LiquidationLTV:    d("0.8"),
		MonthlyRate:       d("1.5"),
		OriginationFee:    d("1"),
		Status:            core.QuoteStatusActive,
	}
	require.Nil(t, f.db.Quotes().Create(context.Background(), q))
	return q
}

func (f *fixture) create(t *testing.T, req *core.CreateLoanRequest) *core.Loan {
	loan, err := f.svc.Create(context.Background(), f.user, req)
	require.Nil(t, err)
	return loan
}

func (f *fixture) balance(symbol string) string {
	b, _ := f.db.Balances().Find(context.Background(), f.user.UserID, symbol)
	return b.Available.String()
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.quote(t)

	loan := f.create(t, &core.CreateLoanRequest{QuoteID: q.TraceID})
	assert.Equal(t, core.LoanStatusPendingCollateral, loan.Status)
	assert.Equal(t, "0.08", loan.CollateralExpected.String())
	assert.Equal(t, "100", loan.Principal.String())
	assert.NotEmpty(t, loan.ReceivingAddress)
	assert.Equal(t, f.clock.Now().Add(time.Hour), *loan.ExpiresAt)

	w, _ := f.db.Wallets().FindByAddress(ctx, "ethereum", loan.ReceivingAddress)
	assert.Equal(t, loan.TraceID, w.LoanID)

	stored, _ := f.db.Quotes().Find(ctx, q.TraceID)
	assert.Equal(t, core.QuoteStatusUsed, stored.Status)

	again := f.create(t, &core.CreateLoanRequest{QuoteID: q.TraceID})
	assert.Equal(t, loan.TraceID, again.TraceID)

	_, err := f.svc.Create(ctx, &core.User{UserID: "u2"}, &core.CreateLoanRequest{QuoteID: q.TraceID})
	assert.Equal(t, core.ErrQuoteNotFound, err)

	_, err = f.svc.Create(ctx, f.user, &core.CreateLoanRequest{QuoteID: q.TraceID, PayoutMethod: core.PayoutExternal})
	assert.Equal(t, core.ErrInvalidPayout, err)
}

func TestCreateExpiredQuote(t *testing.T) {
	f := newFixture(t)
	q := f.quote(t)

	f.clock.Add(2 * time.Hour)
	_, err := f.svc.Create(context.Background(), f.user, &core.CreateLoanRequest{QuoteID: q.TraceID})
	assert.Equal(t, core.ErrQuoteUsed, err)

	stored, _ := f.db.Quotes().Find(context.Background(), q.TraceID)
	assert.Equal(t, core.QuoteStatusExpired, stored.Status)
}

func TestActivateInternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loan := f.create(t, &core.CreateLoanRequest{QuoteID: f.quote(t).TraceID})

	require.Nil(t, f.db.Balances().Credit(ctx, f.user.UserID, "ETH", d("1")))

	loan, err := f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("0.05"))
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusPendingCollateral, loan.Status)

	loan, err = f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("0.03"))
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusActive, loan.Status)
	assert.Nil(t, loan.ExpiresAt)
	assert.Equal(t, time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), *loan.NextInterestAt)

	assert.Equal(t, "0.92", f.balance("ETH"))
	assert.Equal(t, "99", f.balance("USDT"))

	usdt, _ := f.db.Assets().Find(ctx, "USDT", "ethereum")
	assert.Equal(t, "901", usdt.Liquidity.String())

	txs, _ := f.db.Transactions().ListByLoan(ctx, loan.TraceID)
	var disbursements int
	for _, tx := range txs {
		if tx.Type == core.TransactionTypeDisbursement {
			disbursements++
			assert.Equal(t, core.TransactionStatusConfirmed, tx.Status)
			assert.Equal(t, "1", tx.Fee.String())
		}
	}
	assert.Equal(t, 1, disbursements)

	// activation happens once
	again, err := f.svc.CollateralReceived(ctx, loan.TraceID)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusActive, again.Status)
	assert.Equal(t, "99", f.balance("USDT"))

	_, err = f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("5"))
	assert.ErrorIs(t, err, core.ErrInsufficientBalance)
}

func TestActivateWithoutLiquidity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// each loan fits the 1000 USDT pool on its own, not both
	first := f.create(t, &core.CreateLoanRequest{QuoteID: f.quoteFor(t, d("800"), d("0.64")).TraceID})
	second := f.create(t, &core.CreateLoanRequest{QuoteID: f.quoteFor(t, d("800"), d("0.64")).TraceID})
	require.Nil(t, f.db.Balances().Credit(ctx, f.user.UserID, "ETH", d("1.28")))

	first, err := f.svc.DepositCollateral(ctx, f.user, first.TraceID, d("0.64"))
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusActive, first.Status)

	second, err = f.svc.DepositCollateral(ctx, f.user, second.TraceID, d("0.64"))
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusPendingCollateral, second.Status)
	assert.Equal(t, "0.64", second.CollateralReceived.String())

	_, err = f.svc.CollateralReceived(ctx, second.TraceID)
	var deficit *core.DeficitError
	require.ErrorAs(t, err, &deficit)
	assert.ErrorIs(t, err, core.ErrInsufficientLiquidity)
	assert.Equal(t, "598", deficit.Deficit().String())

	usdt, _ := f.db.Assets().Find(ctx, "USDT", "ethereum")
	assert.Equal(t, "201", usdt.Liquidity.String())
	assert.Equal(t, "799", f.balance("USDT"))

	stored, _ := f.db.Loans().Find(ctx, second.TraceID)
	assert.Equal(t, core.LoanStatusPendingCollateral, stored.Status)
	assert.Nil(t, stored.DisbursedAt)

	txs, _ := f.db.Transactions().ListByLoan(ctx, second.TraceID)
	for _, tx := range txs {
		assert.NotEqual(t, core.TransactionTypeDisbursement, tx.Type)
	}
}

func TestActivateExternalPayoutFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loan := f.create(t, &core.CreateLoanRequest{
		QuoteID:       f.quote(t).TraceID,
		PayoutMethod:  core.PayoutExternal,
		PayoutAddress: "0x00000000000000000000000000000000000000ee",
	})

	require.Nil(t, f.db.Balances().Credit(ctx, f.user.UserID, "ETH", d("0.08")))
	f.chain.FailTransfers(true)

	loan, err := f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("0.08"))
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusActive, loan.Status)
	assert.NotNil(t, loan.DisbursedAt)
	assert.Equal(t, "0", f.balance("USDT"))

	txs, _ := f.db.Transactions().ListByLoan(ctx, loan.TraceID)
	var disbursement *core.Transaction
	for _, tx := range txs {
		if tx.Type == core.TransactionTypeDisbursement {
			disbursement = tx
		}
	}
	require.NotNil(t, disbursement)
	assert.Equal(t, core.TransactionStatusFailed, disbursement.Status)
	assert.NotEmpty(t, disbursement.ExtraData()[core.TransactionKeyError])
}

func TestActivateExternalPayout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loan := f.create(t, &core.CreateLoanRequest{
		QuoteID:       f.quote(t).TraceID,
		PayoutMethod:  core.PayoutExternal,
		PayoutAddress: "0x00000000000000000000000000000000000000ee",
	})

	require.Nil(t, f.db.Balances().Credit(ctx, f.user.UserID, "ETH", d("0.08")))
	_, err := f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("0.08"))
	require.Nil(t, err)

	transfers := f.chain.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, "99", transfers[0].Amount.String())
	assert.Equal(t, "0x00000000000000000000000000000000000000ee", transfers[0].To)

	disbursement, _ := f.db.Transactions().FindByChainTxID(ctx, transfers[0].TxID)
	assert.Equal(t, core.TransactionStatusConfirmed, disbursement.Status)
}

func activeLoan(t *testing.T, f *fixture) *core.Loan {
	ctx := context.Background()
	loan := f.create(t, &core.CreateLoanRequest{QuoteID: f.quote(t).TraceID})
	require.Nil(t, f.db.Balances().Credit(ctx, f.user.UserID, "ETH", d("0.08")))

	loan, err := f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("0.08"))
	require.Nil(t, err)
	require.Equal(t, core.LoanStatusActive, loan.Status)
	return loan
}

func TestRepayInternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loan := activeLoan(t, f)

	// 99 disbursed, top up so the whole principal can be repaid
	require.Nil(t, f.db.Balances().Credit(ctx, f.user.UserID, "USDT", d("50")))

	loan, err := f.svc.Repay(ctx, f.user, loan.TraceID, &core.RepayRequest{Amount: d("40")})
	require.Nil(t, err)
	assert.Equal(t, "60", loan.Principal.String())
	assert.Equal(t, core.LoanStatusActive, loan.Status)
	assert.Equal(t, "109", f.balance("USDT"))

	// capped at the outstanding principal
	loan, err = f.svc.Repay(ctx, f.user, loan.TraceID, &core.RepayRequest{Amount: d("1000")})
	require.Nil(t, err)
	assert.True(t, loan.Principal.IsZero())
	assert.Equal(t, core.LoanStatusRepaid, loan.Status)
	assert.Equal(t, "49", f.balance("USDT"))
	assert.Equal(t, "0.08", f.balance("ETH"))

	_, err = f.svc.Repay(ctx, f.user, loan.TraceID, &core.RepayRequest{Amount: d("1")})
	assert.Equal(t, core.ErrInvalidLoanStatus, err)

	// released once
	_, err = f.svc.ReleaseCollateral(ctx, loan.TraceID)
	require.Nil(t, err)
	assert.Equal(t, "0.08", f.balance("ETH"))
}

func TestRepayInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loan := activeLoan(t, f)

	_, err := f.svc.Repay(ctx, f.user, loan.TraceID, &core.RepayRequest{Amount: d("100")})
	var deficit *core.DeficitError
	require.ErrorAs(t, err, &deficit)
	assert.Equal(t, "1", deficit.Deficit().String())

	stored, _ := f.db.Loans().Find(ctx, loan.TraceID)
	assert.Equal(t, "100", stored.Principal.String())
}

func TestRepayExternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loan := activeLoan(t, f)

	req := &core.RepayRequest{Amount: d("30"), ChainTxID: "0xrepay", BlockNumber: 10}
	loan, err := f.svc.Repay(ctx, f.user, loan.TraceID, req)
	require.Nil(t, err)
	assert.Equal(t, "70", loan.Principal.String())

	// redelivery settles once
	loan, err = f.svc.Repay(ctx, f.user, loan.TraceID, req)
	require.Nil(t, err)
	assert.Equal(t, "70", loan.Principal.String())
	assert.Equal(t, "99", f.balance("USDT"))

	f.chain.Reject("0xunconfirmed")
	_, err = f.svc.Repay(ctx, f.user, loan.TraceID, &core.RepayRequest{Amount: d("1"), ChainTxID: "0xunconfirmed"})
	assert.Equal(t, core.ErrTransactionNotConfirmed, err)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loan := f.create(t, &core.CreateLoanRequest{QuoteID: f.quote(t).TraceID})

	require.Nil(t, f.db.Balances().Credit(ctx, f.user.UserID, "ETH", d("0.02")))
	_, err := f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("0.02"))
	require.Nil(t, err)
	assert.Equal(t, "0", f.balance("ETH"))

	loan, err = f.svc.Cancel(ctx, f.user, loan.TraceID)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusCancelled, loan.Status)
	assert.Equal(t, "0.02", f.balance("ETH"))

	loan, err = f.svc.Cancel(ctx, f.user, loan.TraceID)
	require.Nil(t, err)
	assert.Equal(t, "0.02", f.balance("ETH"))

	_, err = f.svc.DepositCollateral(ctx, f.user, loan.TraceID, d("0.01"))
	assert.Equal(t, core.ErrInvalidLoanStatus, err)

	active := activeLoan(t, f)
	_, err = f.svc.Cancel(ctx, f.user, active.TraceID)
	assert.Equal(t, core.ErrInvalidLoanStatus, err)
}
