package quoteexpiry

import (
	"context"
	"time"

	"lending/core"
	"lending/pkg/clock"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
)

// Worker expires quotes nobody consumed within the quote ttl
type Worker struct {
	*worker.CronJob
	quotes core.QuoteStore
	ttl    time.Duration
	clock  clock.Clock
}

// New new quote expiry worker
func New(spec string, loc *time.Location, ttl time.Duration, quotes core.QuoteStore, clk clock.Clock) *Worker {
	w := &Worker{
		quotes: quotes,
		ttl:    ttl,
		clock:  clk,
	}

	w.CronJob = worker.NewCronJob("quote-expiry", spec, loc, w.onWork)
	return w
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "quote-expiry")

	n, err := w.quotes.ExpireBefore(ctx, w.clock.Now().Add(-w.ttl))
	if err != nil {
		log.WithError(err).Errorln("quotes.ExpireBefore")
		return err
	}

	if n > 0 {
		log.Infof("%d quotes expired", n)
	}

	return nil
}
