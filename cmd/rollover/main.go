package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/slot-booking/internal/app/rollover"
	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env)

	logger.Info("starting rollover", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := rollover.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize rollover app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("rollover finished with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("rollover finished")
}
