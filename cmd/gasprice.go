package cmd

import (
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/ourbitrage/cmd/bot"
	"github.com/michaelpento.lv/ourbitrage/utils"
	"github.com/spf13/cobra"
)

var gasPriceCmd = &cobra.Command{
	Use:   "gasprice",
	Short: "Fetch the gas price the next cycle would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateConfig(); err != nil {
			return err
		}

		oracle := bot.NewOracle(cfg, utils.Component("gas"))

		price, err := oracle.CurrentGasPrice(cmd.Context())
		if err != nil {
			return err
		}

		gwei := new(big.Rat).SetFrac(price, big.NewInt(1e9))
		fmt.Fprintf(cmd.OutOrStdout(), "gas_price_wei=%s gas_price_gwei=%s\n", price, gwei.FloatString(1))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gasPriceCmd)
}
