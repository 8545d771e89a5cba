package cmd

import (
	"sync"

	"lending/worker"
	"lending/worker/deposit"
	"lending/worker/interest"
	"lending/worker/margin"
	"lending/worker/quoteexpiry"
	"lending/worker/relocator"
	"lending/worker/timeout"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run lending monitors and the deposit pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := signal.WithContext(cmd.Context())
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		clk := provideClock()
		loc := provideLocation()
		specs := cfg.Workers

		ledger := provideLedger(database)
		assets := provideAssetStore(database)
		loans := provideLoanStore(database)
		properties := providePropertyStore(database)

		chains := provideChains(ctx)
		wallets := provideWalletService(chains, provideWalletStore(database))
		loanService := provideLoanService(ledger, chains, wallets)

		timeoutWorker := timeout.New(specs.Timeout, loc, loans, loanService, clk)
		marginWorker := margin.New(specs.Margin, loc, specs.Capacity, ledger, providePriceService(assets), clk)
		interestWorker := interest.New(specs.Interest, loc, ledger, clk)
		quoteWorker := quoteexpiry.New(specs.QuoteExpiry, loc, cfg.Quote.TTL(), provideQuoteStore(database), clk)
		for _, job := range []*worker.CronJob{
			timeoutWorker.CronJob,
			marginWorker.CronJob,
			interestWorker.CronJob,
			quoteWorker.CronJob,
		} {
			job.Checkpoints = properties
		}

		workers := []worker.Worker{
			timeoutWorker,
			marginWorker,
			interestWorker,
			quoteWorker,
			deposit.New(provideConfig(), provideQueue(ctx), chains, ledger, provideUserStore(database), loanService),
			relocator.New(provideConfig(), ledger, chains, wallets),
		}

		wg := sync.WaitGroup{}
		for _, w := range workers {
			wg.Add(1)

			go func(w worker.Worker) {
				defer wg.Done()
				if err := w.Run(ctx); err != nil && ctx.Err() == nil {
					log.WithError(err).Errorln("worker stopped")
				}
			}(w)
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
