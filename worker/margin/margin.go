package margin

import (
	"context"
	"time"

	"lending/core"
	"lending/pkg/clock"
	"lending/pkg/id"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const limit = 200

// Worker margin & liquidation monitor
type Worker struct {
	*worker.CronJob
	ledger   core.Ledger
	prices   core.PriceService
	clock    clock.Clock
	capacity int64
}

// New new margin monitor, capacity bounds the loans evaluated in parallel
func New(
	spec string,
	loc *time.Location,
	capacity int64,
	ledger core.Ledger,
	prices core.PriceService,
	clk clock.Clock,
) *Worker {
	if capacity <= 0 {
		capacity = 1
	}

	w := &Worker{
		ledger:   ledger,
		prices:   prices,
		clock:    clk,
		capacity: capacity,
	}

	w.CronJob = worker.NewCronJob("margin", spec, loc, w.onWork)
	return w
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "margin")
	loans := w.ledger.Stores().Loans
	sem := semaphore.NewWeighted(w.capacity)

	var from uint64
	for {
		items, err := loans.ListByStatus(ctx, core.LoanStatusActive, from, limit)
		if err != nil {
			log.WithError(err).Errorln("loans.ListByStatus")
			return err
		}

		g := errgroup.Group{}
		for idx := range items {
			loan := items[idx]
			from = loan.ID

			if err := sem.Acquire(ctx, 1); err != nil {
				return g.Wait()
			}

			g.Go(func() error {
				defer sem.Release(1)
				// one loan failing does not stop the others
				if err := w.handleLoan(ctx, loan); err != nil {
					log.WithError(err).Errorln("evaluate loan", loan.TraceID)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		if len(items) < limit {
			return nil
		}
	}
}

func (w *Worker) handleLoan(ctx context.Context, loan *core.Loan) error {
	log := logger.FromContext(ctx).WithField("worker", "margin").WithField("loan", loan.TraceID)

	borrowPrice, err := w.prices.Price(ctx, loan.BorrowNetwork, loan.BorrowSymbol)
	if err != nil {
		return err
	}

	collateralPrice, err := w.prices.Price(ctx, loan.CollateralNetwork, loan.CollateralSymbol)
	if err != nil {
		return err
	}

	w.dipAlert(ctx, loan, collateralPrice)

	ltv, infinite := loan.LTV(borrowPrice, collateralPrice)
	switch {
	case infinite || ltv.GreaterThanOrEqual(loan.LiquidationLTV):
		return w.liquidate(ctx, loan, ltv, infinite, borrowPrice, collateralPrice)
	case ltv.GreaterThanOrEqual(loan.MarginCallLTV):
		log.Warnln("margin call, ltv", ltv)
		return w.ledger.Stores().Transactions.Create(ctx, audit(loan, core.TransactionTypeMarginCall, id.GenTraceID(), ltv, false, borrowPrice, collateralPrice))
	}

	return nil
}

func (w *Worker) liquidate(ctx context.Context, loan *core.Loan, ltv decimal.Decimal, infinite bool, borrowPrice, collateralPrice decimal.Decimal) error {
	log := logger.FromContext(ctx).WithField("worker", "margin").WithField("loan", loan.TraceID)

	var liquidated bool
	err := w.ledger.WithinTx(ctx, func(tx core.Stores) error {
		ok, err := tx.Loans.Liquidate(ctx, loan, w.clock.Now())
		if err != nil || !ok {
			return err
		}

		liquidated = true
		traceID := id.Derive(loan.TraceID, "liquidation")
		return tx.Transactions.Create(ctx, audit(loan, core.TransactionTypeLiquidation, traceID, ltv, infinite, borrowPrice, collateralPrice))
	})
	if err != nil {
		return err
	}

	if liquidated {
		// the collateral sale itself is settled by operators
		log.Warnln("loan liquidated, ltv", ltvText(ltv, infinite))
	}

	return nil
}

// dipAlert warn when the collateral price fell by at least the loan's alert
// percent since origination
func (w *Worker) dipAlert(ctx context.Context, loan *core.Loan, price decimal.Decimal) {
	if !loan.CollateralDipAlert.IsPositive() || !loan.OriginCollateralPrice.IsPositive() {
		return
	}

	drop := loan.OriginCollateralPrice.Sub(price).Div(loan.OriginCollateralPrice).Shift(2)
	if drop.GreaterThanOrEqual(loan.CollateralDipAlert) {
		logger.FromContext(ctx).WithField("worker", "margin").WithField("loan", loan.TraceID).
			Warnf("collateral %s dropped %s%% since origination", loan.CollateralSymbol, drop.StringFixed(2))
	}
}

func audit(loan *core.Loan, typ core.TransactionType, traceID string, ltv decimal.Decimal, infinite bool, borrowPrice, collateralPrice decimal.Decimal) *core.Transaction {
	return &core.Transaction{
		TraceID: traceID,
		UserID:  loan.UserID,
		Type:    typ,
		Symbol:  loan.CollateralSymbol,
		Network: loan.CollateralNetwork,
		Amount:  loan.CollateralReceived,
		Gross:   loan.CollateralReceived,
		Net:     loan.CollateralReceived,
		Fee:     decimal.Zero,
		Status:  core.TransactionStatusConfirmed,
		LoanID:  loan.TraceID,
		Data: core.NewTransactionExtra().
			Put(core.TransactionKeyLTV, ltvText(ltv, infinite)).
			Put(core.TransactionKeyPrincipal, loan.Principal.String()).
			Put(core.TransactionKeyBorrowPrice, borrowPrice.String()).
			Put(core.TransactionKeyCollateralPrice, collateralPrice.String()).
			Format(),
	}
}

func ltvText(ltv decimal.Decimal, infinite bool) string {
	if infinite {
		return "inf"
	}

	return ltv.StringFixed(4)
}
