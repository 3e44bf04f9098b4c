package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rankgate/internal/app"
	chatexpiry "rankgate/internal/chat/expiry"
	"rankgate/internal/platform/config"
	"rankgate/internal/platform/logger"
)

// main runs one expiry sweep against the configured stores and prints the
// result as JSON. Meant for cron jobs when the server's sweeper is disabled.
func main() {
	dryRun := flag.Bool("dry-run", false, "list expired chat sessions (grace period included) without changing them")
	flag.Parse()

	if err := run(*dryRun); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("wire app: %w", err)
	}
	defer a.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if dryRun {
		ids, err := a.Expiry().FindExpiredSessions(ctx, true)
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"expired_session_ids": ids})
	}
	result, err := a.Expiry().CleanupExpiredSessions(ctx)
	if err != nil {
		return err
	}
	chatexpiry.LogResult(ctx, log, result)
	return enc.Encode(result)
}
