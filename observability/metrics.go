package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

// Auth outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeInactive = "inactive"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
	OutcomeDropped  = "dropped"
)

// Metrics holds the process collectors, registered on their own registry
// so tests can build as many instances as they need.
type Metrics struct {
	registry          *prometheus.Registry
	ConnectionsActive prometheus.Gauge
	AuthTotal         *prometheus.CounterVec
	EnvelopesTotal    *prometheus.CounterVec
	DeliveriesTotal   *prometheus.CounterVec
	GroupsActive      prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open /chat connections.",
		}),
		AuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_total",
			Help:      "Authorization attempts by outcome.",
		}, []string{"outcome"}),
		EnvelopesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_total",
			Help:      "Inbound envelopes by type and outcome.",
		}, []string{"type", "outcome"}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Broadcast deliveries to connection sinks by outcome.",
		}, []string{"outcome"}),
		GroupsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups_active",
			Help:      "Number of session groups with at least one live connection.",
		}),
	}
	m.registry.MustRegister(
		m.ConnectionsActive,
		m.AuthTotal,
		m.EnvelopesTotal,
		m.DeliveriesTotal,
		m.GroupsActive,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
