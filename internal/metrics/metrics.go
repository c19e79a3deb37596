// Package metrics records command outcomes as Prometheus metrics.
package metrics

import (
	"github.com/aretw0/folio/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)

// Metrics holds the command collectors.
type Metrics struct {
	Commands *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_commands_total",
				Help: "Total number of dispatched commands",
			},
			[]string{"command", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_command_duration_seconds",
				Help:    "Duration of command dispatches",
				Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
			},
			[]string{"command"},
		),
	}
	for _, c := range []prometheus.Collector{m.Commands, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns engine hooks that feed the collectors.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnApplied: func(e *domain.CommandEvent) {
			m.observe(e, OutcomeApplied)
		},
		OnRejected: func(e *domain.CommandEvent) {
			m.observe(e, OutcomeRejected)
		},
	}
}

func (m *Metrics) observe(e *domain.CommandEvent, outcome string) {
	m.Commands.WithLabelValues(e.Command, outcome).Inc()
	m.Duration.WithLabelValues(e.Command).Observe(e.Duration.Seconds())
}
