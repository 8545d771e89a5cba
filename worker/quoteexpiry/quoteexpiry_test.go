package quoteexpiry

import (
	"context"
	"testing"
	"time"

	"lending/core"
	"lending/internal/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpire(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t)
	w := New("@every 5m", time.UTC, time.Hour, env.DB.Quotes(), env.Clock)

	stale := env.Quote(t)
	used := env.Quote(t)
	_, err := env.Loans.Create(ctx, env.User, &core.CreateLoanRequest{QuoteID: used.TraceID})
	require.Nil(t, err)

	env.Clock.Add(30 * time.Minute)
	fresh := env.Quote(t)

	env.Clock.Add(31 * time.Minute)
	require.Nil(t, w.Tick(ctx))

	for id, status := range map[string]core.QuoteStatus{
		stale.TraceID: core.QuoteStatusExpired,
		used.TraceID:  core.QuoteStatusUsed,
		fresh.TraceID: core.QuoteStatusActive,
	} {
		q, _ := env.DB.Quotes().Find(ctx, id)
		assert.Equal(t, status, q.Status, id)
	}
}
