package deposit

import (
	"context"
	"testing"
	"time"

	"lending/core"
	"lending/internal/testenv"
	"lending/store/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorker(env *testenv.Env) (*Worker, core.DepositQueue) {
	q := queue.NewMemory(16, 10*time.Millisecond)
	return New(env.Config, q, env.Chains, env.Ledger, env.DB.Users(), env.Loans), q
}

func nativeEvent(address, txID, amount string) *core.DepositEvent {
	return &core.DepositEvent{
		Address:          address,
		Amount:           testenv.D(amount),
		TxID:             txID,
		Chain:            testenv.Network,
		SubscriptionType: core.SubscriptionNative,
		BlockNumber:      100,
	}
}

func TestPlainDeposit(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w, q := newWorker(env)

	wallet, err := env.Wallets.NewWallet(ctx, env.User.UserID, testenv.Network)
	require.Nil(t, err)

	event := nativeEvent(wallet.Address, "0xaaa", "1")
	require.Nil(t, q.Push(ctx, event))
	require.Nil(t, q.Push(ctx, event))
	require.Nil(t, w.onWork(ctx))
	require.Nil(t, w.onWork(ctx))
	assert.ErrorIs(t, w.onWork(ctx), core.ErrQueueEmpty)

	// basic tier pays a 1% receive fee
	assert.Equal(t, "0.99", env.Balance("ETH"))

	tx, _ := env.DB.Transactions().FindByChainTxID(ctx, "0xaaa")
	assert.Equal(t, core.TransactionStatusConfirmed, tx.Status)
	assert.Equal(t, "1", tx.Gross.String())
	assert.Equal(t, "0.99", tx.Net.String())
	assert.Equal(t, "0.01", tx.Fee.String())

	eth, _ := env.DB.Assets().Find(ctx, "ETH", testenv.Network)
	assert.Equal(t, "1", eth.Held.String())

	relocations, _ := env.DB.Transactions().ListPending(ctx, core.TransactionTypeRelocation, 0, 10)
	require.Len(t, relocations, 1)
	assert.Equal(t, "1", relocations[0].Amount.String())
	assert.Equal(t, wallet.Address, relocations[0].Address)
}

func TestGoldTierDeposit(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w, _ := newWorker(env)
	require.Nil(t, env.DB.Users().UpdateTier(ctx, env.User, "gold"))

	wallet, err := env.Wallets.NewWallet(ctx, env.User.UserID, testenv.Network)
	require.Nil(t, err)

	require.Nil(t, w.Handle(ctx, nativeEvent(wallet.Address, "0xbbb", "1")))
	assert.Equal(t, "1", env.Balance("ETH"))
}

func TestCollateralDeposit(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w, _ := newWorker(env)

	loan := env.PendingLoan(t)
	require.Nil(t, w.Handle(ctx, nativeEvent(loan.ReceivingAddress, "0xc1", "0.05")))

	loan, _ = env.DB.Loans().Find(ctx, loan.TraceID)
	assert.Equal(t, core.LoanStatusPendingCollateral, loan.Status)
	assert.Equal(t, "0.05", loan.CollateralReceived.String())

	require.Nil(t, w.Handle(ctx, nativeEvent(loan.ReceivingAddress, "0xc2", "0.03")))
	loan, _ = env.DB.Loans().Find(ctx, loan.TraceID)
	assert.Equal(t, core.LoanStatusActive, loan.Status)
	assert.Equal(t, "99", env.Balance("USDT"))
	assert.Equal(t, "0", env.Balance("ETH"))

	// collateral added to an active loan only moves its ltv
	require.Nil(t, w.Handle(ctx, nativeEvent(loan.ReceivingAddress, "0xc3", "0.02")))
	loan, _ = env.DB.Loans().Find(ctx, loan.TraceID)
	assert.Equal(t, core.LoanStatusActive, loan.Status)
	assert.Equal(t, "0.1", loan.CollateralReceived.String())
	assert.Len(t, env.Transactions(t, loan.TraceID, core.TransactionTypeDisbursement), 1)
}

func TestLateCollateral(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w, _ := newWorker(env)

	loan := env.PendingLoan(t)
	_, err := env.Loans.Cancel(ctx, env.User, loan.TraceID)
	require.Nil(t, err)

	require.Nil(t, w.Handle(ctx, nativeEvent(loan.ReceivingAddress, "0xd1", "0.08")))
	loan, _ = env.DB.Loans().Find(ctx, loan.TraceID)
	assert.Equal(t, core.LoanStatusCancelled, loan.Status)
	assert.True(t, loan.CollateralReceived.IsZero())
	assert.Equal(t, "0.0792", env.Balance("ETH"))
}

func TestUnconfirmed(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w, _ := newWorker(env)

	wallet, err := env.Wallets.NewWallet(ctx, env.User.UserID, testenv.Network)
	require.Nil(t, err)

	env.Chain.Reject("0xeee")
	assert.Equal(t, core.ErrTransactionNotConfirmed, w.Handle(ctx, nativeEvent(wallet.Address, "0xeee", "1")))

	tx, _ := env.DB.Transactions().FindByChainTxID(ctx, "0xeee")
	assert.Zero(t, tx.ID)
	assert.Equal(t, "0", env.Balance("ETH"))
}

func TestTokenDeposit(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w, _ := newWorker(env)

	wallet, err := env.Wallets.NewWallet(ctx, env.User.UserID, testenv.Network)
	require.Nil(t, err)

	event := nativeEvent(wallet.Address, "0xf1", "50")
	event.SubscriptionType = core.SubscriptionToken
	event.ContractAddress = "0xDAC17F958D2EE523A2206206994597C13D831EC7"
	require.Nil(t, w.Handle(ctx, event))
	assert.Equal(t, "49.5", env.Balance("USDT"))

	unknown := nativeEvent(wallet.Address, "0xf2", "10")
	unknown.SubscriptionType = core.SubscriptionToken
	unknown.ContractAddress = "0x0000000000000000000000000000000000000bad"
	require.Nil(t, w.Handle(ctx, unknown))

	tx, _ := env.DB.Transactions().FindByChainTxID(ctx, "0xf2")
	assert.Equal(t, core.TransactionStatusPending, tx.Status)
	assert.Equal(t, unknown.ContractAddress, tx.ExtraData()[core.TransactionKeyContract])
	assert.Equal(t, "49.5", env.Balance("USDT"))

	relocations, _ := env.DB.Transactions().ListPending(ctx, core.TransactionTypeRelocation, 0, 10)
	assert.Len(t, relocations, 1)
}

func TestUnknownAddress(t *testing.T) {
	env := testenv.New(t)
	w, _ := newWorker(env)

	require.Nil(t, w.Handle(context.Background(), nativeEvent("0x0000000000000000000000000000000000000001", "0x01", "1")))
	tx, _ := env.DB.Transactions().FindByChainTxID(context.Background(), "0x01")
	assert.Zero(t, tx.ID)
}
