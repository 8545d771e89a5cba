package relocator

import (
	"context"
	"errors"
	"fmt"

	"lending/core"
	"lending/pkg/id"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
)

const limit = 50

// Worker moves deposited funds from user wallets to platform custody. A
// failed relocation never reverses the credit, the funds stay owned by the
// user internally
type Worker struct {
	worker.TickWorker
	config  *core.Config
	ledger  core.Ledger
	chains  core.ChainRegistry
	wallets core.WalletService
}

// New new relocator
func New(cfg *core.Config, ledger core.Ledger, chains core.ChainRegistry, wallets core.WalletService) *Worker {
	return &Worker{
		config:  cfg,
		ledger:  ledger,
		chains:  chains,
		wallets: wallets,
	}
}

// Run run worker
func (w *Worker) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "relocator")
	ctx = logger.WithContext(ctx, log)

	return w.StartTick(ctx, w.onWork)
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "relocator")

	txs, err := w.ledger.Stores().Transactions.ListPending(ctx, core.TransactionTypeRelocation, 0, limit)
	if err != nil {
		log.WithError(err).Errorln("transactions.ListPending")
		return err
	}

	if len(txs) == 0 {
		return errors.New("EOF")
	}

	for _, tx := range txs {
		w.handle(ctx, tx)
	}

	return nil
}

func (w *Worker) handle(ctx context.Context, tx *core.Transaction) {
	log := logger.FromContext(ctx).WithField("worker", "relocator").WithField("trace", tx.TraceID)
	transactions := w.ledger.Stores().Transactions

	ctx, cancel := context.WithTimeout(ctx, w.config.Workers.JobTimeout())
	defer cancel()

	txID, err := w.relocate(ctx, tx)
	if err != nil {
		log.WithError(err).Errorln("relocation failed, funds stay at", tx.Address)
		tx.SetExtraData(tx.ExtraData().Put(core.TransactionKeyError, err.Error()))
		if _, err := transactions.UpdateStatus(ctx, tx, core.TransactionStatusPending, core.TransactionStatusFailed); err != nil {
			log.WithError(err).Errorln("transactions.UpdateStatus")
		}

		return
	}

	tx.SetChainTxID(txID)
	if _, err := transactions.UpdateStatus(ctx, tx, core.TransactionStatusPending, core.TransactionStatusConfirmed); err != nil {
		log.WithError(err).Errorln("transactions.UpdateStatus")
		return
	}

	log.Infoln("relocated", tx.Amount, tx.Symbol, "to custody", txID)
}

func (w *Worker) relocate(ctx context.Context, tx *core.Transaction) (string, error) {
	stores := w.ledger.Stores()

	provider, err := w.chains.Provider(tx.Network)
	if err != nil {
		return "", err
	}

	asset, err := stores.Assets.Find(ctx, tx.Symbol, tx.Network)
	if err != nil {
		return "", err
	}

	if asset.ID == 0 {
		return "", core.ErrAssetNotListed
	}

	custody := asset.CustodyAddress
	if chain, ok := w.config.Chain(tx.Network); ok && custody == "" {
		custody = chain.CustodyAddress
	}

	if custody == "" {
		return "", fmt.Errorf("no custody address for %s on %s", asset.Symbol, asset.Network)
	}

	wallet, err := stores.Wallets.FindByAddress(ctx, tx.Network, tx.Address)
	if err != nil {
		return "", err
	}

	if wallet.ID == 0 {
		return "", fmt.Errorf("wallet %s not found", tx.Address)
	}

	from, err := w.wallets.Open(ctx, wallet)
	if err != nil {
		return "", err
	}

	if err := w.topUpGas(ctx, provider, tx, asset, from.Address); err != nil {
		return "", err
	}

	return provider.Transfer(ctx, &core.TransferRequest{
		TraceID:  tx.TraceID,
		From:     from,
		To:       custody,
		Contract: asset.ContractAddress,
		Decimals: asset.Decimals,
		Amount:   tx.Amount,
	})
}

// topUpGas fund the user wallet from custody when its native balance cannot
// cover the relocation fee
func (w *Worker) topUpGas(ctx context.Context, provider core.ChainWalletProvider, tx *core.Transaction, asset *core.Asset, address string) error {
	log := logger.FromContext(ctx).WithField("worker", "relocator").WithField("trace", tx.TraceID)

	fee, err := provider.TransferFee(ctx, asset.ContractAddress)
	if err != nil {
		return err
	}

	if !fee.IsPositive() {
		return nil
	}

	native, err := w.ledger.Stores().Assets.FindNative(ctx, tx.Network)
	if err != nil {
		return err
	}

	decimals := native.Decimals
	if native.ID == 0 {
		decimals = 18
	}

	balance, err := provider.Balance(ctx, address, "", decimals)
	if err != nil {
		return err
	}

	need := fee
	if asset.Native() {
		need = need.Add(tx.Amount)
	}

	if balance.GreaterThanOrEqual(need) {
		return nil
	}

	custody, err := w.wallets.Custody(ctx, tx.Network)
	if err != nil {
		return err
	}

	topUp := need.Sub(balance)
	txID, err := provider.Transfer(ctx, &core.TransferRequest{
		TraceID:  id.Derive(tx.TraceID, "gas"),
		From:     custody,
		To:       address,
		Decimals: decimals,
		Amount:   topUp,
	})
	if err != nil {
		return fmt.Errorf("gas top up: %w", err)
	}

	log.Infoln("gas topped up", topUp, "tx", txID)
	tx.SetExtraData(tx.ExtraData().Put(core.TransactionKeyGasTopUp, txID))
	return nil
}
