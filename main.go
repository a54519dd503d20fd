package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/michaelpento.lv/ourbitrage/cmd"
	"github.com/michaelpento.lv/ourbitrage/utils"
	"go.uber.org/zap"
)

func main() {
	// Handle shutdown gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		log := utils.GetLogger()
		log.Error("Ourbitrage stopped", zap.Error(err))
		utils.CleanupLogger()
		stop()
		os.Exit(1)
	}
	utils.CleanupLogger()
}
