package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finnews/internal/app"
	"finnews/internal/config"
	"finnews/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if closeErr := application.Close(); closeErr != nil {
		logger.Warn("shutdown cleanup failed", "error", closeErr)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("application stopped", "error", runErr)
		os.Exit(1)
	}
}
