// Package metrics exposes the registry's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the registry reports to. A nil *Metrics is
// safe to call, so wiring them is optional in tests.
type Metrics struct {
	activeSubscriptions *prometheus.GaugeVec
	occurrences         *prometheus.CounterVec
	matches             *prometheus.CounterVec
	dispatchErrors      *prometheus.CounterVec
	executions          *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		activeSubscriptions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trigion_active_subscriptions",
			Help: "Live trigger subscriptions by trigger type.",
		}, []string{"trigger_type"}),
		occurrences: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trigion_occurrences_total",
			Help: "Occurrences handled, by trigger family.",
		}, []string{"kind"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trigion_matches_total",
			Help: "Candidate subscriptions that matched an occurrence.",
		}, []string{"kind"}),
		dispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trigion_dispatch_errors_total",
			Help: "Errors raised while dispatching matched subscriptions.",
		}, []string{"kind"}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trigion_trigger_executions_total",
			Help: "Trigger executions by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) SubscriptionRegistered(triggerType string) {
	if m == nil {
		return
	}

	m.activeSubscriptions.WithLabelValues(triggerType).Inc()
}

func (m *Metrics) SubscriptionUnregistered(triggerType string) {
	if m == nil {
		return
	}

	m.activeSubscriptions.WithLabelValues(triggerType).Dec()
}

func (m *Metrics) OccurrenceHandled(kind string) {
	if m == nil {
		return
	}

	m.occurrences.WithLabelValues(kind).Inc()
}

func (m *Metrics) Matched(kind string) {
	if m == nil {
		return
	}

	m.matches.WithLabelValues(kind).Inc()
}

func (m *Metrics) DispatchError(kind string) {
	if m == nil {
		return
	}

	m.dispatchErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ExecutionFinished(success bool) {
	if m == nil {
		return
	}

	result := "success"
	if !success {
		result = "error"
	}

	m.executions.WithLabelValues(result).Inc()
}
