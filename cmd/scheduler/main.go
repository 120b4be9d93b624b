package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/epochlabs/ledgerx/app/scheduler"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := scheduler.Initialize(ctx)

	if err := app.Run(ctx); err != nil {
		app.Logger.Fatal("Scheduler provisioning failed", zap.Error(err))
	}

	app.TemporalClient.Close()
	app.Logger.Info("Collection schedule provisioned")
}
