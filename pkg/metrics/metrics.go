// Package metrics exposes Prometheus collectors for pool and automation
// activity. Collectors are registry-scoped so independent pools in
// tests never collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the subsystem's Prometheus metrics. A nil
// *Collector is valid and records nothing, so metrics stay optional.
type Collector struct {
	registry *prometheus.Registry

	openInstances  prometheus.Gauge
	instanceCreate *prometheus.CounterVec
	instanceClosed prometheus.Counter
	actions        *prometheus.CounterVec
	bulkOps        *prometheus.CounterVec
}

// NewCollector constructs a collector with its own registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	openInstances := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tokfleet",
		Subsystem: "pool",
		Name:      "open_instances",
		Help:      "Number of currently open account instances.",
	})

	instanceCreate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokfleet",
		Subsystem: "pool",
		Name:      "instance_creates_total",
		Help:      "Instance create attempts by result.",
	}, []string{"result"})

	instanceClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tokfleet",
		Subsystem: "pool",
		Name:      "instances_closed_total",
		Help:      "Instances closed, whatever the cause.",
	})

	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokfleet",
		Subsystem: "automation",
		Name:      "actions_total",
		Help:      "Automation actions performed by type.",
	}, []string{"action"})

	bulkOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokfleet",
		Subsystem: "engine",
		Name:      "bulk_operations_total",
		Help:      "Bulk operations by kind and per-account result.",
	}, []string{"operation", "result"})

	for _, c := range []prometheus.Collector{openInstances, instanceCreate, instanceClosed, actions, bulkOps} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:       registry,
		openInstances:  openInstances,
		instanceCreate: instanceCreate,
		instanceClosed: instanceClosed,
		actions:        actions,
		bulkOps:        bulkOps,
	}, nil
}

// Handler returns an HTTP handler for exposing the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstanceOpened records a successful instance creation.
func (c *Collector) InstanceOpened() {
	if c == nil {
		return
	}
	c.instanceCreate.WithLabelValues("ok").Inc()
	c.openInstances.Inc()
}

// InstanceCreateFailed records a failed create attempt by reason.
func (c *Collector) InstanceCreateFailed(reason string) {
	if c == nil {
		return
	}
	c.instanceCreate.WithLabelValues(reason).Inc()
}

// InstanceClosed records an instance going away.
func (c *Collector) InstanceClosed() {
	if c == nil {
		return
	}
	c.instanceClosed.Inc()
	c.openInstances.Dec()
}

// ActionPerformed records one automation action.
func (c *Collector) ActionPerformed(action string) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(action).Inc()
}

// BulkResult records one per-account outcome of a bulk operation.
func (c *Collector) BulkResult(operation string, ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.bulkOps.WithLabelValues(operation, result).Inc()
}
