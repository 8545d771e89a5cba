package webhook

import (
	"errors"
	"net/http"
	"strings"

	"lending/core"
	"lending/handler/render"
	"lending/handler/request"
	"lending/pkg/clock"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Handle handle chain watcher notifications
func Handle(queue core.DepositQueue, clk clock.Clock) http.Handler {
	router := chi.NewRouter()
	router.Post("/deposits", depositHandler(queue, clk))
	return router
}

type depositPayload struct {
	Address          string      `json:"address" valid:"required"`
	Amount           string      `json:"amount" valid:"required,float"`
	TxID             string      `json:"txId" valid:"required"`
	Chain            string      `json:"chain" valid:"required"`
	SubscriptionType string      `json:"subscriptionType" valid:"required,in(native|token)"`
	ContractAddress  string      `json:"contractAddress"`
	BlockNumber      interface{} `json:"blockNumber"`
}

func (p *depositPayload) event() (*core.DepositEvent, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, errors.New("amount: must be a positive decimal")
	}

	if p.BlockNumber == nil {
		return nil, errors.New("blockNumber: non zero value required")
	}

	block, err := cast.ToInt64E(p.BlockNumber)
	if err != nil || block <= 0 {
		return nil, errors.New("blockNumber: must be a positive integer")
	}

	if p.SubscriptionType == core.SubscriptionToken && p.ContractAddress == "" {
		return nil, errors.New("contractAddress: required for token transfers")
	}

	return &core.DepositEvent{
		Address:          p.Address,
		Amount:           amount,
		TxID:             p.TxID,
		Chain:            strings.ToLower(p.Chain),
		SubscriptionType: p.SubscriptionType,
		ContractAddress:  p.ContractAddress,
		BlockNumber:      block,
	}, nil
}

// depositHandler validate and enqueue, settlement happens asynchronously
func depositHandler(queue core.DepositQueue, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload depositPayload
		if err := request.Bind(r, &payload); err != nil {
			render.BadRequest(w, err)
			return
		}

		event, err := payload.event()
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		event.ReceivedAt = clk.Now()
		if err := queue.Push(ctx, event); err != nil {
			logger.FromContext(ctx).WithError(err).Errorln("queue.Push", event.TxID)
			render.Error(w, err)
			return
		}

		render.Status(w, http.StatusAccepted, render.H{"tx_id": event.TxID, "accepted": true})
	}
}
