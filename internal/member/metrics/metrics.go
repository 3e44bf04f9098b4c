package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks member lifecycle events. A nil *Metrics is a no-op.
type Metrics struct {
	Logins      *prometheus.CounterVec
	Verified    prometheus.Counter
	LockRetries prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankgate_member_logins_total",
			Help: "Successful logins, split by whether the profile was created",
		}, []string{"profile"}),
		Verified: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_members_verified_total",
			Help: "Members that linked a Rank Card",
		}),
		LockRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_member_lock_retries_total",
			Help: "Member saves retried after an optimistic lock conflict",
		}),
	}
}

func (m *Metrics) IncrementLogin(created bool) {
	if m == nil {
		return
	}
	label := "existing"
	if created {
		label = "created"
	}
	m.Logins.WithLabelValues(label).Inc()
}

func (m *Metrics) IncrementVerified() {
	if m == nil {
		return
	}
	m.Verified.Inc()
}

func (m *Metrics) IncrementLockRetry() {
	if m == nil {
		return
	}
	m.LockRetries.Inc()
}
