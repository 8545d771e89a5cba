package cmd

import (
	"github.com/spf13/cobra"
)

// maintain command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "custody key maintenance",
}

var keysSealCmd = &cobra.Command{
	Use:   "seal <private key>",
	Short: "seal a private key with app.aes_key, the output goes to chains[].custody_key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sealed, err := provideSealer().Seal(args[0])
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		cmd.Println(sealed)
	},
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate <network>",
	Short: "generate a custody address on the network",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		provider, err := provideChains(ctx).Provider(args[0])
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		pair, err := provider.GenerateAddress(ctx)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		sealed, err := provideSealer().Seal(pair.PrivateKey)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		cmd.Println("custody_address:", pair.Address)
		cmd.Println("custody_key:", sealed)
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSealCmd)
	keysCmd.AddCommand(keysGenerateCmd)
}
