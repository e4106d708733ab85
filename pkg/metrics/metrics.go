// Package metrics holds the Prometheus collectors of the shop processes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eshop"

// Metrics is the collector set of one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business
	CartMutationsTotal *prometheus.CounterVec
	CheckoutsTotal     *prometheus.CounterVec
	OutboxDispatches   *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
}

// New creates the collectors for subsystem and registers them, together with
// the Go runtime collectors, on a fresh registry.
func New(subsystem string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		CartMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and result",
		}, []string{"operation", "result"}),
		CheckoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result",
		}, []string{"result"}),
		OutboxDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_dispatches_total",
			Help:      "Outbox dispatch attempts by kind and result",
		}, []string{"kind", "result"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Notification events handled by the worker",
		}, []string{"kind", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CartMutationsTotal,
		m.CheckoutsTotal,
		m.OutboxDispatches,
		m.NotificationsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) CartMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.CartMutationsTotal.WithLabelValues(operation, result(err)).Inc()
}

// Checkout counts one checkout; outcome is a short label such as "placed",
// "replayed", "empty" or "error".
func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OutboxDispatch(kind string, err error) {
	if m == nil {
		return
	}
	m.OutboxDispatches.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, result(err)).Inc()
}
