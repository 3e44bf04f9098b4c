package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks relay throughput. A nil *Metrics is a no-op.
type Metrics struct {
	Relayed  prometheus.Counter
	Failures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Relayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_outbox_relayed_total",
			Help: "Outbox entries delivered to the broker",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankgate_outbox_relay_failures_total",
			Help: "Outbox batches the broker refused",
		}),
	}
}

func (m *Metrics) observeRelayed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Relayed.Add(float64(n))
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}
