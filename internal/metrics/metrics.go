// Package metrics exposes Prometheus counters for authentication and audit
// activity.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AuthEvents counts authentication outcomes by event
	// (register, login, logout, rotate, reject).
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opendrive",
			Name:      "auth_events_total",
			Help:      "Authentication events by kind",
		},
		[]string{"event"},
	)

	// AuditWrites counts audit event writes by result (ok, failed).
	AuditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opendrive",
			Name:      "audit_writes_total",
			Help:      "Audit event writes by result",
		},
		[]string{"result"},
	)

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		AuthEvents,
		AuditWrites,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
