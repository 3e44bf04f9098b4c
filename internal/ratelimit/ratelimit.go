// Package ratelimit throttles callers per key. Limiters are injected into the
// middleware rather than held in package state, so each process (or Redis
// keyspace) owns its buckets explicitly.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome for one request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	// Degraded is set when the decision came from a local fallback rather
	// than the shared backend.
	Degraded bool
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
