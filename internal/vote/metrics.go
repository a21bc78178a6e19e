package vote

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricVotesCast    = "votes_cast_total"
	MetricVotesRemoved = "votes_removed_total"
)

// Metrics contains Prometheus metrics for vote operations.
// All operations are thread-safe.
type Metrics struct {
	votesCast    *prometheus.CounterVec
	votesRemoved prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		votesCast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricVotesCast,
				Help: "Total number of votes cast by kind",
			},
			[]string{"kind"},
		),
		votesRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricVotesRemoved,
				Help: "Total number of votes removed",
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.votesCast,
		m.votesRemoved,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncCast increments the cast counter for the given kind.
func (m *Metrics) IncCast(kind Kind) {
	m.votesCast.WithLabelValues(string(kind)).Inc()
}

// IncRemoved increments the removed counter.
func (m *Metrics) IncRemoved() {
	m.votesRemoved.Inc()
}
