package expiry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks sweeper runs. A nil *Metrics is a no-op.
type Metrics struct {
	Runs     prometheus.Counter
	Cleaned  *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_expiry_runs_total",
			Help: "Completed cleanup runs",
		}),
		Cleaned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankgate_expiry_sessions_cleaned_total",
			Help: "Sessions retired by cleanup",
		}, []string{"kind"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankgate_expiry_errors_total",
			Help: "Per-session cleanup failures",
		}, []string{"kind"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rankgate_expiry_run_duration_seconds",
			Help:    "Wall time of a cleanup run",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeRun(r CleanupResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Runs.Inc()
	m.Cleaned.WithLabelValues(KindChat).Add(float64(r.ChatSessionsCleaned))
	m.Cleaned.WithLabelValues(KindVerification).Add(float64(r.VCSessionsCleaned))
	for _, e := range r.Errors {
		m.Errors.WithLabelValues(e.Kind).Inc()
	}
	m.Duration.Observe(elapsed.Seconds())
}
