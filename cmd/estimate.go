package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/michaelpento.lv/ourbitrage/cmd/bot"
	"github.com/michaelpento.lv/ourbitrage/utils"
	"github.com/spf13/cobra"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the gas of every route once and print the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateConfig(); err != nil {
			return err
		}

		deps, err := bot.Wire(cmd.Context(), cfg, nil, utils.GetLogger())
		if err != nil {
			return err
		}
		defer deps.Close()

		cache := deps.Arbitrator.Prepare(cmd.Context())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROUTE\tGAS\tSTATUS")
		for i, route := range deps.Catalog.Routes() {
			estimate := cache.Get(i)
			status := "ok"
			if estimate.Failing {
				status = "disabled"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", route.ID(), estimate.GasUnits, status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}
