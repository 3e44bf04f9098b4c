package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	id "rankgate/pkg/domain"
	"rankgate/pkg/requestcontext"
)

type recordingLimiter struct {
	keys     []string
	decision Decision
	err      error
}

func (l *recordingLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.keys = append(l.keys, key)
	return l.decision, l.err
}

func serve(mw *Middleware, ctx context.Context) *httptest.ResponseRecorder {
	h := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	return rec
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("denied request gets 429 and Retry-After", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)
		limiter := &recordingLimiter{decision: Decision{Allowed: false, Limit: 5, RetryAfter: 1500 * time.Millisecond}}
		rec := serve(NewMiddleware(limiter, logger, WithMetrics(metrics)), requestcontext.WithClientIP(context.Background(), "192.0.2.1"))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "rate_limited")
		assert.Equal(t, []string{"ip:192.0.2.1"}, limiter.keys)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("denied")))
	})

	t.Run("authenticated callers are keyed by member", func(t *testing.T) {
		memberID := id.NewMemberID()
		limiter := &recordingLimiter{decision: Decision{Allowed: true, Limit: 5, Remaining: 4}}
		rec := serve(NewMiddleware(limiter, logger), requestcontext.WithMemberID(context.Background(), memberID))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, []string{"member:" + memberID.String()}, limiter.keys)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := &recordingLimiter{err: errors.New("redis down")}
		rec := serve(NewMiddleware(limiter, logger), context.Background())
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
