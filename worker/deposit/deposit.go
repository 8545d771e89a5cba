package deposit

import (
	"context"
	"errors"

	"lending/core"
	"lending/pkg/id"
	"lending/pkg/number"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

// Worker single consumer of the deposit queue, events are settled strictly in
// arrival order
type Worker struct {
	worker.TickWorker
	config  *core.Config
	queue   core.DepositQueue
	chains  core.ChainRegistry
	ledger  core.Ledger
	users   core.UserStore
	loanSvc core.LoanService
}

// New new deposit ingestion worker
func New(
	cfg *core.Config,
	queue core.DepositQueue,
	chains core.ChainRegistry,
	ledger core.Ledger,
	users core.UserStore,
	loanSvc core.LoanService,
) *Worker {
	return &Worker{
		config:  cfg,
		queue:   queue,
		chains:  chains,
		ledger:  ledger,
		users:   users,
		loanSvc: loanSvc,
	}
}

// Run run worker
func (w *Worker) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "deposit")
	ctx = logger.WithContext(ctx, log)

	return w.StartTick(ctx, w.onWork)
}

func (w *Worker) onWork(ctx context.Context) error {
	event, err := w.queue.Pop(ctx)
	if err != nil {
		if !errors.Is(err, core.ErrQueueEmpty) {
			logger.FromContext(ctx).WithError(err).Errorln("queue.Pop")
		}
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.Workers.JobTimeout())
	defer cancel()

	// a failed job is dropped, the notifier redelivers
	if err := w.Handle(ctx, event); err != nil {
		logger.FromContext(ctx).WithError(err).Warnln("deposit dropped", event.TxID)
	}

	return nil
}

// Handle settle one deposit event
func (w *Worker) Handle(ctx context.Context, event *core.DepositEvent) error {
	log := logger.FromContext(ctx).WithField("worker", "deposit").
		WithField("chain", event.Chain).
		WithField("tx", event.TxID)

	if !event.Amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	stores := w.ledger.Stores()

	if exist, err := stores.Transactions.FindByChainTxID(ctx, event.TxID); err != nil {
		return err
	} else if exist.ID > 0 {
		log.Debugln("already settled")
		return nil
	}

	if err := w.confirm(ctx, event); err != nil {
		return err
	}

	wallet, err := stores.Wallets.FindByAddress(ctx, event.Chain, event.Address)
	if err != nil {
		return err
	}

	if wallet.ID == 0 {
		log.Warnln("no wallet owns", event.Address)
		return nil
	}

	asset, err := w.asset(ctx, event)
	if err != nil {
		return err
	}

	deposit := &core.Transaction{
		TraceID: id.TraceIDf("deposit:%s:%s", event.Chain, event.TxID),
		UserID:  wallet.UserID,
		Type:    core.TransactionTypeDeposit,
		Network: event.Chain,
		Amount:  event.Amount,
		Gross:   event.Amount,
		Net:     event.Amount,
		Fee:     decimal.Zero,
		Status:  core.TransactionStatusConfirmed,
		Address: event.Address,
		Data: core.NewTransactionExtra().
			Put(core.TransactionKeyBlock, event.BlockNumber).
			Put(core.TransactionKeyContract, event.ContractAddress).
			Format(),
	}
	deposit.SetChainTxID(event.TxID)

	if asset.ID == 0 {
		// unrecognized token, recorded for operators without touching balances
		deposit.Status = core.TransactionStatusPending
		if err := stores.Transactions.Create(ctx, deposit); err != nil && !errors.Is(err, core.ErrDuplicateTransaction) {
			return err
		}

		log.Warnln("unrecognized token", event.ContractAddress)
		return nil
	}

	deposit.Symbol = asset.Symbol

	user, err := w.users.Find(ctx, wallet.UserID)
	if err != nil {
		return err
	}

	fee := w.config.Tier(user.TierName()).ReceiveFee()
	net := number.Floor(event.Amount.Mul(decimal.NewFromInt(1).Sub(fee)), asset.Decimals)

	relocation := &core.Transaction{
		TraceID: id.Derive(deposit.TraceID, "relocation"),
		UserID:  wallet.UserID,
		Type:    core.TransactionTypeRelocation,
		Symbol:  asset.Symbol,
		Network: asset.Network,
		Amount:  event.Amount,
		Gross:   event.Amount,
		Net:     event.Amount,
		Fee:     decimal.Zero,
		Status:  core.TransactionStatusPending,
		Address: event.Address,
		Data:    core.NewTransactionExtra().Put(core.TransactionKeySource, deposit.TraceID).Format(),
	}

	var collateral string
	err = w.ledger.WithinTx(ctx, func(tx core.Stores) error {
		collateral = ""

		if loanID := wallet.LoanID; loanID != "" {
			loan, err := tx.Loans.Find(ctx, loanID)
			if err != nil {
				return err
			}

			// collateral is held, not received: it counts in full against the
			// expected amount and the receive fee only applies to balance credits
			if loan.ID > 0 && loan.CollateralSymbol == asset.Symbol && loan.AcceptsCollateral() {
				ok, err := tx.Loans.AddCollateral(ctx, loan, event.Amount)
				if err != nil {
					return err
				}

				if ok {
					collateral = loan.TraceID
				}
			}
		}

		if collateral != "" {
			deposit.LoanID = collateral
		} else {
			// plain deposit or late collateral, owned by the user net of fee
			deposit.Amount, deposit.Net, deposit.Fee = net, net, event.Amount.Sub(net)
			if net.IsPositive() {
				if err := tx.Balances.Credit(ctx, wallet.UserID, asset.Symbol, net); err != nil {
					return err
				}
			}
		}

		if err := tx.Transactions.Create(ctx, deposit); err != nil {
			return err
		}

		if err := tx.Assets.AddHeld(ctx, asset, event.Amount); err != nil {
			return err
		}

		return tx.Transactions.Create(ctx, relocation)
	})

	if errors.Is(err, core.ErrDuplicateTransaction) {
		log.Debugln("settled concurrently")
		return nil
	}

	if err != nil {
		log.WithError(err).Errorln("settle deposit")
		return err
	}

	log.Infoln("deposit settled", event.Amount, asset.Symbol, "to", event.Address)

	if collateral != "" {
		if _, err := w.loanSvc.CollateralReceived(ctx, collateral); err != nil {
			log.WithError(err).Errorln("loans.CollateralReceived", collateral)
		}
	}

	return nil
}

// asset empty asset when the platform does not know the token
func (w *Worker) asset(ctx context.Context, event *core.DepositEvent) (*core.Asset, error) {
	assets := w.ledger.Stores().Assets

	var (
		asset *core.Asset
		err   error
	)

	if event.Token() {
		if event.ContractAddress == "" {
			return &core.Asset{}, nil
		}

		asset, err = assets.FindByContract(ctx, event.Chain, event.ContractAddress)
	} else {
		asset, err = assets.FindNative(ctx, event.Chain)
	}

	if err != nil {
		return nil, err
	}

	if !asset.Listed() {
		return &core.Asset{}, nil
	}

	return asset, nil
}

func (w *Worker) confirm(ctx context.Context, event *core.DepositEvent) error {
	provider, err := w.chains.Provider(event.Chain)
	if err != nil {
		return err
	}

	timeout := w.config.Workers.JobTimeout()
	if chain, ok := w.config.Chain(event.Chain); ok {
		timeout = chain.Timeout()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	confirmed, err := provider.Confirm(ctx, event.TxID, event.BlockNumber)
	if err != nil {
		return err
	}

	if !confirmed {
		return core.ErrTransactionNotConfirmed
	}

	return nil
}
