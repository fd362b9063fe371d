package sessions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeNoToken = "no_token"
	outcomeStale   = "stale"
)

// Metrics counts refresh outcomes and state transitions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	refreshTotal  *prometheus.CounterVec
	refreshShared prometheus.Counter
	transitions   *prometheus.CounterVec
}

// NewMetrics creates the session metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		refreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_session_refresh_total",
				Help: "Refresh attempts by outcome.",
			},
			[]string{"outcome"},
		),
		refreshShared: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_session_refresh_shared_total",
				Help: "Refresh callers whose attempt was shared with at least one other caller, the caller that started it included.",
			},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_session_transitions_total",
				Help: "Session state transitions by target state.",
			},
			[]string{"to"},
		),
	}
}

func (m *Metrics) refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) shared() {
	if m == nil {
		return
	}
	m.refreshShared.Inc()
}

func (m *Metrics) transition(to Kind) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to.String()).Inc()
}
