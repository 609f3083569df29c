// Package metrics exposes Prometheus collectors for the node dispatcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lpnswitch"

// Collector holds the node's metrics. A nil *Collector is valid and
// records nothing, so callers never need to guard their calls.
type Collector struct {
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	filtered       prometheus.Counter
	commands       *prometheus.CounterVec
	commandFailure *prometheus.CounterVec
	lifecycle      *prometheus.GaugeVec
	connections    prometheus.Gauge
	lpnActive      prometheus.Gauge
	resets         *prometheus.CounterVec
}

// New creates a Collector registered on a private registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Stack events dispatched to the node, by event name.",
		}, []string{"event"}),
		filtered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_filtered_total",
			Help:      "Stack events consumed by the mesh library filter.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands issued to the stack, by command and result.",
		}, []string{"command", "result"}),
		commandFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_failures_total",
			Help:      "Commands the stack rejected, by command.",
		}, []string{"command"}),
		lifecycle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lifecycle_state",
			Help:      "1 for the current node lifecycle state, 0 otherwise.",
		}, []string{"state"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open GATT connections.",
		}),
		lpnActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lpn_active",
			Help:      "1 while low power node operation is enabled.",
		}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "system_resets_total",
			Help:      "System resets requested by the node, by mode.",
		}, []string{"mode"}),
	}
	c.registry.MustRegister(
		c.events,
		c.filtered,
		c.commands,
		c.commandFailure,
		c.lifecycle,
		c.connections,
		c.lpnActive,
		c.resets,
	)
	return c
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// EventDispatched counts an event handed to the node.
func (c *Collector) EventDispatched(name string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(name).Inc()
}

// EventFiltered counts an event consumed by the stack filter.
func (c *Collector) EventFiltered() {
	if c == nil {
		return
	}
	c.filtered.Inc()
}

// CommandIssued counts a command and, when failed, a failure.
func (c *Collector) CommandIssued(command, result string, failed bool) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(command, result).Inc()
	if failed {
		c.commandFailure.WithLabelValues(command).Inc()
	}
}

// SetLifecycle marks state as current and clears old.
func (c *Collector) SetLifecycle(old, state string) {
	if c == nil {
		return
	}
	if old != "" && old != state {
		c.lifecycle.WithLabelValues(old).Set(0)
	}
	c.lifecycle.WithLabelValues(state).Set(1)
}

// SetConnections records the open connection count.
func (c *Collector) SetConnections(n int) {
	if c == nil {
		return
	}
	c.connections.Set(float64(n))
}

// SetLPNActive records whether LPN operation is enabled.
func (c *Collector) SetLPNActive(active bool) {
	if c == nil {
		return
	}
	if active {
		c.lpnActive.Set(1)
	} else {
		c.lpnActive.Set(0)
	}
}

// SystemReset counts a reset request.
func (c *Collector) SystemReset(mode string) {
	if c == nil {
		return
	}
	c.resets.WithLabelValues(mode).Inc()
}
