package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts limiter outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	Decisions *prometheus.CounterVec
	Errors    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankgate_ratelimit_decisions_total",
			Help: "Rate limit decisions by outcome",
		}, []string{"outcome"}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_ratelimit_errors_total",
			Help: "Limiter failures; requests are let through",
		}),
	}
}

func (m *Metrics) observe(allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeError() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}
