package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the people service.
type Metrics struct {
	registry *prometheus.Registry

	PeopleCreated    prometheus.Counter
	LookupMisses     prometheus.Counter
	EventsDropped    prometheus.Counter
	EventSubscribers prometheus.Gauge
}

// New creates the collectors on a dedicated registry so several instances
// can coexist (tests build one per router).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PeopleCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "people_created_total",
			Help: "Total number of people created through the API",
		}),
		LookupMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "people_lookup_misses_total",
			Help: "Total number of lookups for an unknown person id",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "people_events_dropped_total",
			Help: "Events not delivered because a subscriber buffer was full",
		}),
		EventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "people_event_subscribers",
			Help: "Live feed subscribers currently connected",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
