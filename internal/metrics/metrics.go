package metrics

import (
	"time"

	"admin-actions/internal/control"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors of the panel service.
type Metrics struct {
	ControlTransitions *prometheus.CounterVec
	ActionOutcomes     *prometheus.CounterVec
	ActionDuration     *prometheus.HistogramVec
	GuardConflicts     prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ControlTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_actions_control_transitions_total",
				Help: "Control state transitions by target phase.",
			},
			[]string{"phase"},
		),
		ActionOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_actions_outcomes_total",
				Help: "Settled remote actions by kind and result.",
			},
			[]string{"kind", "result"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admin_actions_duration_seconds",
				Help:    "Time from click to terminal control state.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		GuardConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_actions_guard_conflicts_total",
			Help: "Actions refused because an equivalent action was in progress.",
		}),
	}
	reg.MustRegister(m.ControlTransitions, m.ActionOutcomes, m.ActionDuration, m.GuardConflicts)
	return m
}

// ControlChanged counts a control transition. It satisfies control.Listener.
func (m *Metrics) ControlChanged(v control.View) {
	m.ControlTransitions.WithLabelValues(string(v.State.Phase)).Inc()
}

// ObserveAction records one settled action.
func (m *Metrics) ObserveAction(kind string, ok, conflict bool, d time.Duration) {
	result := "failed"
	if ok {
		result = "ok"
	}
	m.ActionOutcomes.WithLabelValues(kind, result).Inc()
	m.ActionDuration.WithLabelValues(kind).Observe(d.Seconds())
	if conflict {
		m.GuardConflicts.Inc()
	}
}
