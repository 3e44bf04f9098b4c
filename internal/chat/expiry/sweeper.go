package expiry

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs cleanup on a fixed interval.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.InfoContext(ctx, "expiry sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result, err := s.service.CleanupExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.WarnContext(ctx, "expiry sweep aborted", "error", err)
				}
				continue
			}
			LogResult(ctx, s.logger, result)
		}
	}
}

// LogResult writes one warning per failed session and a summary line. Runs
// that touched nothing stay quiet.
func LogResult(ctx context.Context, logger *slog.Logger, result CleanupResult) {
	for _, failure := range result.Errors {
		logger.WarnContext(ctx, "expiry cleanup failed",
			"kind", failure.Kind,
			"session_id", failure.SessionID,
			"error", failure.Message,
		)
	}
	if result.ChatSessionsCleaned == 0 && result.VCSessionsCleaned == 0 && len(result.Errors) == 0 {
		return
	}
	logger.InfoContext(ctx, "expired sessions cleaned up",
		"chat_processed", result.ChatSessionsProcessed,
		"chat_cleaned", result.ChatSessionsCleaned,
		"vc_processed", result.VCSessionsProcessed,
		"vc_cleaned", result.VCSessionsCleaned,
		"errors", len(result.Errors),
	)
}
