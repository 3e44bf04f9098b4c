package ratelimit

import (
	"context"
	"log/slog"

	"rankgate/pkg/platform/circuit"
)

// FallbackLimiter asks the primary (shared) limiter first. After enough
// consecutive primary errors the breaker opens and decisions come from the
// local fallback, marked Degraded, until the primary has recovered.
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallbackLimiter(primary, fallback Limiter, breaker *circuit.Breaker, logger *slog.Logger) *FallbackLimiter {
	return &FallbackLimiter{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	decision, err := l.primary.Allow(ctx, key)
	if err != nil {
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.logger.WarnContext(ctx, "rate limiter circuit opened, using local buckets",
				"breaker", l.breaker.Name(),
				"error", err,
			)
		}
		if !useFallback {
			return Decision{}, err
		}
		return l.degraded(ctx, key)
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.logger.InfoContext(ctx, "rate limiter circuit closed", "breaker", l.breaker.Name())
	}
	if !usePrimary {
		return l.degraded(ctx, key)
	}
	return decision, nil
}

func (l *FallbackLimiter) degraded(ctx context.Context, key string) (Decision, error) {
	decision, err := l.fallback.Allow(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	decision.Degraded = true
	return decision, nil
}
