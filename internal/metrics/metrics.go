// Package metrics exposes Prometheus instrumentation for both roles,
// grounded on the teacher repo's pervasive client_golang usage: queue
// depth gauges for the transport layer, and counters for every protocol
// event named in §6.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the counters and gauges one role instance needs. Both
// roles share the same shape; the controller simply never touches the
// switch-only counters and vice versa.
type Registry struct {
	reg *prometheus.Registry

	InboundQueueLen  prometheus.Gauge
	OutboundQueueLen prometheus.Gauge

	RegisterRequests   prometheus.Counter
	RegisterResponses  prometheus.Counter
	TopologyUpdates    prometheus.Counter
	RoutingUpdatesSent prometheus.Counter
	KeepAlivesSent     prometheus.Counter
	KeepAlivesReceived prometheus.Counter

	SwitchesDead  prometheus.Counter
	SwitchesAlive prometheus.Counter
	NeighborsDead prometheus.Counter
	NeighborsUp   prometheus.Counter
	LinksDead     prometheus.Counter
}

// New constructs a Registry labeled by role ("controller" or "switch")
// under its own prometheus.Registry, so the two roles' metrics never
// collide when both run in the same test process.
func New(role string) *Registry {
	reg := prometheus.NewRegistry()
	namespace := "sdnctl"

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   role,
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"role": role},
		})
		reg.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   role,
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"role": role},
		})
		reg.MustRegister(g)
		return g
	}

	return &Registry{
		reg: reg,

		InboundQueueLen:  gauge("inbound_queue_length", "Number of events waiting in the inbound queue."),
		OutboundQueueLen: gauge("outbound_queue_length", "Number of datagrams waiting in the outbound queue."),

		RegisterRequests:   counter("register_requests_total", "register_request messages handled."),
		RegisterResponses:  counter("register_responses_total", "register_response messages sent."),
		TopologyUpdates:    counter("topology_updates_total", "topology_update messages handled."),
		RoutingUpdatesSent: counter("routing_updates_sent_total", "routing_update messages sent."),
		KeepAlivesSent:     counter("keep_alives_sent_total", "keep_alive messages sent."),
		KeepAlivesReceived: counter("keep_alives_received_total", "keep_alive messages received."),

		SwitchesDead:  counter("switches_dead_total", "Switch Dead detections."),
		SwitchesAlive: counter("switches_alive_total", "Switch Alive (re-registration) events."),
		NeighborsDead: counter("neighbors_dead_total", "Neighbor Dead detections."),
		NeighborsUp:   counter("neighbors_alive_total", "Neighbor Alive events."),
		LinksDead:     counter("links_dead_total", "Link Dead detections."),
	}
}

// Handler returns an http.Handler serving this Registry's metrics in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
