package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"lending/core"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "asset registry maintenance",
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "list assets",
	Run: func(cmd *cobra.Command, args []string) {
		database := provideDatabase()
		defer database.Close()

		assets, err := provideAssetStore(database).All(cmd.Context())
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		bs, _ := json.MarshalIndent(assets, "", "  ")
		cmd.Println(string(bs))
	},
}

var assetSetCmd = &cobra.Command{
	Use:   "set <symbol> <network>",
	Short: "list or update an asset",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database := provideDatabase()
		defer database.Close()

		flags := cmd.Flags()
		contract, _ := flags.GetString("contract")
		decimals, _ := flags.GetInt32("decimals")
		custody, _ := flags.GetString("custody")
		rates, _ := flags.GetString("rates")
		unlisted, _ := flags.GetBool("unlisted")

		asset := &core.Asset{
			Symbol:          strings.ToUpper(args[0]),
			Network:         strings.ToLower(args[1]),
			ContractAddress: contract,
			Decimals:        decimals,
			Status:          core.AssetStatusListed,
			CustodyAddress:  custody,
		}

		if unlisted {
			asset.Status = core.AssetStatusUnlisted
		}

		if rates != "" {
			table, err := parseRates(rates)
			if err != nil {
				cmd.PrintErrln(err)
				return
			}

			asset.SetRateTable(table)
		}

		if err := provideAssetStore(database).Save(ctx, asset); err != nil {
			cmd.PrintErrln("save asset", err)
			return
		}

		cmd.Println("asset", asset.Symbol, "on", asset.Network, "saved")
	},
}

var assetLiquidityCmd = &cobra.Command{
	Use:   "liquidity <symbol> <network> <amount>",
	Short: "add (or withdraw with a negative amount) lendable liquidity",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database := provideDatabase()
		defer database.Close()

		amount, err := decimal.NewFromString(args[2])
		if err != nil {
			cmd.PrintErrln("invalid amount", args[2])
			return
		}

		assets := provideAssetStore(database)
		asset, err := assets.Find(ctx, strings.ToUpper(args[0]), strings.ToLower(args[1]))
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		if asset.ID == 0 {
			cmd.PrintErrln(core.ErrAssetNotListed)
			return
		}

		if err := assets.AddLiquidity(ctx, asset, amount); err != nil {
			cmd.PrintErrln("add liquidity", err)
			return
		}

		cmd.Println("liquidity of", asset.Symbol, "changed by", amount)
	},
}

// parseRates "1:2,12:1.5" => term months : monthly rate percent
func parseRates(s string) (map[int]decimal.Decimal, error) {
	table := make(map[int]decimal.Decimal)
	for _, item := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid rate %q", item)
		}

		term, err := cast.ToIntE(strings.TrimSpace(parts[0]))
		if err != nil || term <= 0 {
			return nil, fmt.Errorf("invalid term %q", parts[0])
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil || rate.IsNegative() {
			return nil, fmt.Errorf("invalid rate %q", parts[1])
		}

		table[term] = rate
	}

	return table, nil
}

func init() {
	rootCmd.AddCommand(assetCmd)
	assetCmd.AddCommand(assetListCmd)
	assetCmd.AddCommand(assetSetCmd)
	assetCmd.AddCommand(assetLiquidityCmd)

	assetSetCmd.Flags().String("contract", "", "token contract, empty for the native coin")
	assetSetCmd.Flags().Int32("decimals", 8, "decimals")
	assetSetCmd.Flags().String("custody", "", "custody address receiving relocated deposits")
	assetSetCmd.Flags().String("rates", "", "term rates, e.g. 1:2,12:1.5")
	assetSetCmd.Flags().Bool("unlisted", false, "keep the asset unlisted")
}
