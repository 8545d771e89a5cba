package timeout

import (
	"context"
	"testing"
	"time"

	"lending/core"
	"lending/internal/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelExpired(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w := New("@every 1m", time.UTC, env.DB.Loans(), env.Loans, env.Clock)

	empty := env.PendingLoan(t)
	partial := env.PendingLoan(t)
	require.Nil(t, env.DB.Balances().Credit(ctx, env.User.UserID, "ETH", testenv.D("0.03")))
	_, err := env.Loans.DepositCollateral(ctx, env.User, partial.TraceID, testenv.D("0.03"))
	require.Nil(t, err)
	assert.Equal(t, "0", env.Balance("ETH"))

	// not yet expired
	require.Nil(t, w.Tick(ctx))
	loan, _ := env.DB.Loans().Find(ctx, empty.TraceID)
	assert.Equal(t, core.LoanStatusPendingCollateral, loan.Status)

	env.Clock.Add(time.Hour)
	require.Nil(t, w.Tick(ctx))

	for _, id := range []string{empty.TraceID, partial.TraceID} {
		loan, _ := env.DB.Loans().Find(ctx, id)
		assert.Equal(t, core.LoanStatusCancelled, loan.Status)
		assert.NotNil(t, loan.CancelledAt)
	}

	assert.Equal(t, "0.03", env.Balance("ETH"))
	assert.Len(t, env.Transactions(t, partial.TraceID, core.TransactionTypeCollateralReturn), 1)

	// idempotent
	require.Nil(t, w.Tick(ctx))
	assert.Equal(t, "0.03", env.Balance("ETH"))
}

func TestLateCollateralNeverActivates(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w := New("@every 1m", time.UTC, env.DB.Loans(), env.Loans, env.Clock)

	loan := env.PendingLoan(t)
	env.Clock.Add(2 * time.Hour)
	require.Nil(t, w.Tick(ctx))

	ok, err := env.DB.Loans().AddCollateral(ctx, loan, testenv.D("0.08"))
	require.Nil(t, err)
	assert.False(t, ok)

	loan, err = env.Loans.CollateralReceived(ctx, loan.TraceID)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusCancelled, loan.Status)
}

func TestReleaseCollateralAddedBeforeCancel(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w := New("@every 1m", time.UTC, env.DB.Loans(), env.Loans, env.Clock)

	loan := env.PendingLoan(t)
	env.Clock.Add(2 * time.Hour)

	// a deposit lands right before the loan gets cancelled and nothing
	// released it yet
	ok, err := env.DB.Loans().AddCollateral(ctx, loan, testenv.D("0.03"))
	require.Nil(t, err)
	require.True(t, ok)
	n, err := env.DB.Loans().CancelExpired(ctx, env.Clock.Now())
	require.Nil(t, err)
	require.EqualValues(t, 1, n)

	require.Nil(t, w.Tick(ctx))
	assert.Equal(t, "0.03", env.Balance("ETH"))
	assert.Len(t, env.Transactions(t, loan.TraceID, core.TransactionTypeCollateralReturn), 1)

	loan, err = env.DB.Loans().Find(ctx, loan.TraceID)
	require.Nil(t, err)
	assert.NotNil(t, loan.CollateralReleasedAt)

	// neither the next tick nor the owner cancelling pays it twice
	require.Nil(t, w.Tick(ctx))
	_, err = env.Loans.Cancel(ctx, env.User, loan.TraceID)
	require.Nil(t, err)
	assert.Equal(t, "0.03", env.Balance("ETH"))
	assert.Len(t, env.Transactions(t, loan.TraceID, core.TransactionTypeCollateralReturn), 1)
}

func TestCancelReleasesAlreadyCancelledLoan(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)

	loan := env.PendingLoan(t)
	env.Clock.Add(2 * time.Hour)
	_, err := env.DB.Loans().AddCollateral(ctx, loan, testenv.D("0.02"))
	require.Nil(t, err)
	_, err = env.DB.Loans().CancelExpired(ctx, env.Clock.Now())
	require.Nil(t, err)

	loan, err = env.Loans.Cancel(ctx, env.User, loan.TraceID)
	require.Nil(t, err)
	assert.Equal(t, core.LoanStatusCancelled, loan.Status)
	assert.NotNil(t, loan.CollateralReleasedAt)
	assert.Equal(t, "0.02", env.Balance("ETH"))
}
