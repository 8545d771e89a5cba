package core

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// SubscriptionNative native coin transfer
	SubscriptionNative = "native"
	// SubscriptionToken fungible token transfer
	SubscriptionToken = "token"
)

// ErrQueueEmpty no deposit event available
var ErrQueueEmpty = errors.New("deposit queue empty")

// DepositEvent inbound chain event notification
type DepositEvent struct {
	Address          string          `json:"address"`
	Amount           decimal.Decimal `json:"amount"`
	TxID             string          `json:"txId"`
	Chain            string          `json:"chain"`
	SubscriptionType string          `json:"subscriptionType"`
	ContractAddress  string          `json:"contractAddress,omitempty"`
	BlockNumber      int64           `json:"blockNumber"`
	ReceivedAt       time.Time       `json:"receivedAt"`
}

// Token token transfer
func (e *DepositEvent) Token() bool {
	return e.SubscriptionType == SubscriptionToken
}

// DepositQueue ordered deposit queue
type DepositQueue interface {
	Push(ctx context.Context, event *DepositEvent) error
	// Pop blocks up to the queue's poll interval, ErrQueueEmpty when nothing arrived
	Pop(ctx context.Context) (*DepositEvent, error)
}
