package interest

import (
	"context"
	"time"

	"lending/core"
	"lending/pkg/clock"
	"lending/pkg/id"
	"lending/pkg/number"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

const limit = 200

// Worker monthly interest accrual
type Worker struct {
	*worker.CronJob
	ledger core.Ledger
	clock  clock.Clock
}

// New new interest worker
func New(spec string, loc *time.Location, ledger core.Ledger, clk clock.Clock) *Worker {
	w := &Worker{
		ledger: ledger,
		clock:  clk,
	}

	w.CronJob = worker.NewCronJob("interest", spec, loc, w.onWork)
	return w
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "interest")
	now := w.clock.Now()

	var from uint64
	for {
		loans, err := w.ledger.Stores().Loans.ListInterestDue(ctx, now, from, limit)
		if err != nil {
			log.WithError(err).Errorln("loans.ListInterestDue")
			return err
		}

		for _, loan := range loans {
			from = loan.ID
			if err := w.accrue(ctx, loan); err != nil {
				log.WithError(err).Errorln("accrue", loan.TraceID)
			}
		}

		if len(loans) < limit {
			return nil
		}
	}
}

// accrue capitalize one month of interest, the interest period is the
// idempotency anchor
func (w *Worker) accrue(ctx context.Context, loan *core.Loan) error {
	log := logger.FromContext(ctx).WithField("worker", "interest").WithField("loan", loan.TraceID)

	due := *loan.NextInterestAt
	interest := number.Percent(loan.Principal, loan.MonthlyRate)
	next := clock.AddMonth(due)
	if loan.DisbursedAt != nil {
		next = clock.NextMonthly(*loan.DisbursedAt, due)
	}

	var applied bool
	err := w.ledger.WithinTx(ctx, func(tx core.Stores) error {
		ok, err := tx.Loans.Accrue(ctx, loan, interest, next)
		if err != nil || !ok {
			return err
		}

		applied = true
		return tx.Transactions.Create(ctx, &core.Transaction{
			TraceID: id.TraceIDf("interest:%s:%d", loan.TraceID, due.Unix()),
			UserID:  loan.UserID,
			Type:    core.TransactionTypeInterestAccrual,
			Symbol:  loan.BorrowSymbol,
			Network: loan.BorrowNetwork,
			Amount:  interest,
			Gross:   interest,
			Net:     interest,
			Fee:     decimal.Zero,
			Status:  core.TransactionStatusConfirmed,
			LoanID:  loan.TraceID,
			Data: core.NewTransactionExtra().
				Put(core.TransactionKeyPrincipal, loan.Principal.String()).
				Put(core.TransactionKeyRate, loan.MonthlyRate.String()).
				Format(),
		})
	})
	if err != nil {
		return err
	}

	if applied && loan.InterestAlert {
		log.Infof("interest %s %s capitalized, next due at %s", interest, loan.BorrowSymbol, next.Format(time.RFC3339))
	}

	return nil
}
