package cmd

import (
	"context"
	"fmt"

	"github.com/michaelpento.lv/ourbitrage/config"
	"github.com/michaelpento.lv/ourbitrage/utils"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	// cfg is read before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ourbitrage",
	Short: "A CLI monitor for Kyber/Uniswap arbitrage through the Ourbitrage contract",
	Long: `A CLI monitor that periodically compares the Kyber and Uniswap prices quoted
by the Ourbitrage contract and executes the most profitable arbitration.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in settings)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig(*cobra.Command, []string) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	c, err := config.ReadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	utils.InitLogger(utils.LogOptions{
		Debug:       debug || cfg.IsDevelopment(),
		LogFile:     cfg.Logging.File,
		ErrorFile:   cfg.Logging.ErrorFile,
		Development: cfg.IsDevelopment(),
	})
	return nil
}
