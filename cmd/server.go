package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lending/handler"
	"lending/handler/hc"

	"github.com/drone/signal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run lending api server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		assets := provideAssetStore(database)
		chains := provideChains(ctx)
		wallets := provideWalletService(chains, provideWalletStore(database))
		ledger := provideLedger(database)

		s := handler.Server{
			Version:      rootCmd.Version,
			Clock:        provideClock(),
			Users:        provideUserStore(database),
			Assets:       assets,
			Balances:     provideBalanceStore(database),
			Loans:        provideLoanStore(database),
			Transactions: provideTransactionStore(database),
			Queue:        provideQueue(ctx),
			QuoteService: provideQuoteService(assets, provideQuoteStore(database), providePriceService(assets)),
			LoanService:  provideLoanService(ledger, chains, wallets),
			Checks: map[string]hc.Check{
				"db": func(ctx context.Context) error { return database.Ping() },
			},
		}

		port, _ := cmd.Flags().GetInt("port")
		addr := fmt.Sprintf(":%d", port)

		server := &http.Server{
			Addr:    addr,
			Handler: s.Handler(),
		}

		ctx, quit := context.WithCancel(ctx)
		done := make(chan struct{}, 1)
		signal.WithContextFunc(ctx, func() {
			quit()

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				logrus.WithError(err).Error("graceful shutdown server failed")
			}

			close(done)
		})

		logrus.Infoln("serve at", addr)
		err := server.ListenAndServe()
		if err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server aborted")
		}

		<-done
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntP("port", "p", 9000, "server port")
}
