package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks forum activity. A nil *Metrics is a no-op.
type Metrics struct {
	Created     prometheus.Counter
	Archived    prometheus.Counter
	Joins       *prometheus.CounterVec
	Leaves      prometheus.Counter
	JoinRetries prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_forums_created_total",
			Help: "Forums created",
		}),
		Archived: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_forums_archived_total",
			Help: "Forums archived by their creator",
		}),
		Joins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankgate_forum_joins_total",
			Help: "Forum join attempts by outcome",
		}, []string{"outcome"}),
		Leaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_forum_leaves_total",
			Help: "Members leaving a forum",
		}),
		JoinRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_forum_join_retries_total",
			Help: "Forum writes retried after an optimistic lock conflict",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.Created.Inc()
}

func (m *Metrics) IncrementArchived() {
	if m == nil {
		return
	}
	m.Archived.Inc()
}

// IncrementJoin records a join attempt; outcome is "joined", "denied" or "error".
func (m *Metrics) IncrementJoin(outcome string) {
	if m == nil {
		return
	}
	m.Joins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementLeave() {
	if m == nil {
		return
	}
	m.Leaves.Inc()
}

func (m *Metrics) IncrementRetry() {
	if m == nil {
		return
	}
	m.JoinRetries.Inc()
}
