package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks Rank Card verification round trips. A nil *Metrics is a no-op.
type Metrics struct {
	Started  prometheus.Counter
	Outcomes *prometheus.CounterVec
	Errors   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Started: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_verifications_started_total",
			Help: "Verification sessions opened with the verifier",
		}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankgate_verification_outcomes_total",
			Help: "Verification sessions reaching a terminal status",
		}, []string{"status"}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_verifier_errors_total",
			Help: "Calls to the verifier that failed",
		}),
	}
}

func (m *Metrics) IncrementStarted() {
	if m == nil {
		return
	}
	m.Started.Inc()
}

func (m *Metrics) IncrementOutcome(status string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementVerifierError() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}
