package timeout

import (
	"context"
	"time"

	"lending/core"
	"lending/pkg/clock"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
)

const limit = 500

// Worker cancels loans whose collateral did not arrive in time and hands
// back collateral still held by closed loans
type Worker struct {
	*worker.CronJob
	loans   core.LoanStore
	loanSvc core.LoanService
	clock   clock.Clock
}

// New new collateral timeout watcher
func New(spec string, loc *time.Location, loans core.LoanStore, loanSvc core.LoanService, clk clock.Clock) *Worker {
	w := &Worker{
		loans:   loans,
		loanSvc: loanSvc,
		clock:   clk,
	}

	w.CronJob = worker.NewCronJob("timeout", spec, loc, w.onWork)
	return w
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "timeout")

	n, err := w.loans.CancelExpired(ctx, w.clock.Now())
	if err != nil {
		log.WithError(err).Errorln("loans.CancelExpired")
		return err
	}

	if n > 0 {
		log.Infof("%d expired loans cancelled", n)
	}

	return w.release(ctx)
}

// release return the collateral still held by cancelled or repaid loans,
// including those whose release was interrupted
func (w *Worker) release(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "timeout")

	var from uint64
	for {
		loans, err := w.loans.ListUnreleased(ctx, from, limit)
		if err != nil {
			log.WithError(err).Errorln("loans.ListUnreleased")
			return err
		}

		for _, loan := range loans {
			from = loan.ID
			if _, err := w.loanSvc.ReleaseCollateral(ctx, loan.TraceID); err != nil {
				log.WithError(err).Warnln("release collateral", loan.TraceID)
			}
		}

		if len(loans) < limit {
			return nil
		}
	}
}
