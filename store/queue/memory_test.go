package queue

import (
	"context"
	"testing"
	"time"

	"lending/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueOrder(t *testing.T) {
	ctx := context.Background()
	q := NewMemory(8, 10*time.Millisecond)

	for _, id := range []string{"0x1", "0x2", "0x3"} {
		require.Nil(t, q.Push(ctx, &core.DepositEvent{TxID: id, Amount: decimal.NewFromInt(1)}))
	}

	for _, id := range []string{"0x1", "0x2", "0x3"} {
		event, err := q.Pop(ctx)
		require.Nil(t, err)
		assert.Equal(t, id, event.TxID)
	}

	_, err := q.Pop(ctx)
	assert.Equal(t, core.ErrQueueEmpty, err)
}
