// Package metrics exposes Prometheus counters for run observability.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters incremented across the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	Fetches        *prometheus.CounterVec
	SolverCalls    prometheus.Counter
	DiscoveryPages prometheus.Counter
	HiddenProbes   *prometheus.CounterVec
	EventsEmitted  *prometheus.CounterVec
	NotifyFailures prometheus.Counter
	DomainsCrawled *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_fetches_total",
			Help: "Gateway fetches by outcome.",
		}, []string{"outcome"}),
		SolverCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_solver_calls_total",
			Help: "Challenge solver delegations.",
		}),
		DiscoveryPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_discovery_pages_total",
			Help: "Pages visited by the discovery orchestrator.",
		}),
		HiddenProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_hidden_probes_total",
			Help: "Hidden scanner probes by classification.",
		}, []string{"result"}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_events_total",
			Help: "Notification events emitted by kind.",
		}, []string{"kind"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_notify_failures_total",
			Help: "Events that exhausted notification retries.",
		}),
		DomainsCrawled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_domains_total",
			Help: "Domains processed by final health status.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.Fetches,
		m.SolverCalls,
		m.DiscoveryPages,
		m.HiddenProbes,
		m.EventsEmitted,
		m.NotifyFailures,
		m.DomainsCrawled,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
