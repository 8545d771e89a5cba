package cmd

import (
	"strings"

	"lending/core"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// push a deposit notification into the queue, used to drive the simulated
// chain by hand
var depositCmd = &cobra.Command{
	Use:   "deposit <address> <amount> <tx-id>",
	Short: "enqueue a deposit notification",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		amount, err := decimal.NewFromString(args[1])
		if err != nil || !amount.IsPositive() {
			cmd.PrintErrln("invalid amount", args[1])
			return
		}

		chain, _ := cmd.Flags().GetString("chain")
		contract, _ := cmd.Flags().GetString("contract")
		block, _ := cmd.Flags().GetInt64("block")

		event := &core.DepositEvent{
			Address:          args[0],
			Amount:           amount,
			TxID:             args[2],
			Chain:            strings.ToLower(chain),
			SubscriptionType: core.SubscriptionNative,
			ContractAddress:  contract,
			BlockNumber:      block,
			ReceivedAt:       provideClock().Now(),
		}

		if contract != "" {
			event.SubscriptionType = core.SubscriptionToken
		}

		if err := provideQueue(ctx).Push(ctx, event); err != nil {
			cmd.PrintErrln("push deposit", err)
			return
		}

		cmd.Println("deposit", event.TxID, "queued")
	},
}

func init() {
	rootCmd.AddCommand(depositCmd)

	depositCmd.Flags().String("chain", "ethereum", "network of the deposit")
	depositCmd.Flags().String("contract", "", "token contract, empty for the native coin")
	depositCmd.Flags().Int64("block", 1, "block number including the transaction")
}
