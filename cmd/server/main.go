package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mnabil10/fasketfornt-sub000/internal/app"
	"github.com/Mnabil10/fasketfornt-sub000/internal/config"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.ServiceName, cfg.Environment, cfg.LogLevel)
	log.Info("starting media gateway",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTP.Port),
	)

	// SIGINT and SIGTERM trigger graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run application: %w", err)
	}

	log.Info("media gateway stopped")
	return nil
}
