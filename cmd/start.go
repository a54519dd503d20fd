package cmd

import (
	"github.com/michaelpento.lv/ourbitrage/cmd/bot"
	"github.com/michaelpento.lv/ourbitrage/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the arbitrage monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()
		ctx := cmd.Context()

		if err := cfg.ValidateConfig(); err != nil {
			return err
		}
		key, err := cfg.OwnerKey()
		if err != nil {
			return err
		}

		deps, err := bot.Wire(ctx, cfg, key, log)
		if err != nil {
			return err
		}
		defer deps.Close()

		bot.LogBanner(ctx, deps.Contract, cfg, log)

		cache := deps.Arbitrator.Prepare(ctx)
		if cache.Failing() == cache.Len() {
			log.Warn("Every route failed gas estimation; no arbitration can run",
				zap.Int("routes", cache.Len()),
			)
		}

		b := bot.New(deps.Arbitrator, bot.Options{
			Interval: cfg.Timings.ExecInterval(),
		}, utils.Component("bot"))
		return b.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
