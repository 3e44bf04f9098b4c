package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rankgate/internal/app"
	"rankgate/internal/platform/config"
	"rankgate/internal/platform/logger"
	"rankgate/internal/platform/tracing"
)

// main loads config, wires the app and runs it until SIGINT or SIGTERM.
// Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("trace flush failed", "error", err)
		}
	}()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("wire app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}()

	log.Info("starting rankgate", "addr", cfg.Server.Addr, "env", cfg.Environment)
	return a.Run(ctx)
}
