package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks private chat lifecycle. A nil *Metrics is a no-op.
type Metrics struct {
	Opened          *prometheus.CounterVec
	Terminated      prometheus.Counter
	ExpiredOnAccess prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Opened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankgate_chat_sessions_opened_total",
			Help: "Private chat sessions opened, by session type",
		}, []string{"type"}),
		Terminated: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_chat_sessions_terminated_total",
			Help: "Private chat sessions ended by a participant",
		}),
		ExpiredOnAccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_chat_sessions_expired_on_access_total",
			Help: "Sessions found lapsed on read and expired before the sweeper reached them",
		}),
	}
}

func (m *Metrics) IncrementOpened(sessionType string) {
	if m == nil {
		return
	}
	m.Opened.WithLabelValues(sessionType).Inc()
}

func (m *Metrics) IncrementTerminated() {
	if m == nil {
		return
	}
	m.Terminated.Inc()
}

func (m *Metrics) IncrementExpiredOnAccess() {
	if m == nil {
		return
	}
	m.ExpiredOnAccess.Inc()
}
