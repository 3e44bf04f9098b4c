package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/httputil"
	"rankgate/pkg/requestcontext"
)

type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Middleware)

func WithMetrics(m *Metrics) Option {
	return func(mw *Middleware) { mw.metrics = m }
}

func NewMiddleware(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// keyFor buckets authenticated callers by member and everyone else by IP.
func keyFor(r *http.Request) string {
	if memberID, ok := requestcontext.MemberID(r.Context()); ok {
		return "member:" + memberID.String()
	}
	return "ip:" + requestcontext.ClientIP(r.Context())
}

// Limit answers 429 with Retry-After once the caller's bucket is empty. A
// failing limiter lets the request through.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		decision, err := m.limiter.Allow(ctx, keyFor(r))
		if err != nil {
			m.metrics.observeError()
			m.logger.ErrorContext(ctx, "rate limiter failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}
		m.metrics.observe(decision.Allowed)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if decision.Degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if !decision.Allowed {
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
