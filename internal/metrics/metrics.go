// Package metrics exposes Prometheus collectors for the dashboard core.
// All methods are safe on a nil *Metrics so packages can be used without
// instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered by New.
type Metrics struct {
	reg prometheus.Gatherer

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	planRefreshes    *prometheus.CounterVec
	planVersion      prometheus.Gauge
	mutations        *prometheus.CounterVec
	wardCritical     *prometheus.GaugeVec
	wardAvailable    *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wardbeds",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the bed store and forecast service by outcome.",
		}, []string{"service", "operation", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wardbeds",
			Name:      "upstream_request_seconds",
			Help:      "Latency of upstream requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		planRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wardbeds",
			Name:      "plan_refreshes_total",
			Help:      "Allocation plan refreshes by outcome.",
		}, []string{"outcome"}),
		planVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wardbeds",
			Name:      "plan_version",
			Help:      "Version of the current allocation plan snapshot.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wardbeds",
			Name:      "status_mutations_total",
			Help:      "Optimistic bed status mutations by final phase.",
		}, []string{"phase"}),
		wardCritical: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wardbeds",
			Name:      "ward_critical",
			Help:      "1 when the ward's incoming patients exceed available capacity.",
		}, []string{"ward_id"}),
		wardAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wardbeds",
			Name:      "ward_available_capacity",
			Help:      "Available capacity last composed for the ward.",
		}, []string{"ward_id"}),
	}
	reg.MustRegister(
		m.upstreamRequests, m.upstreamLatency, m.planRefreshes, m.planVersion,
		m.mutations, m.wardCritical, m.wardAvailable,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(service, operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(service, operation, outcome).Inc()
	m.upstreamLatency.WithLabelValues(service, operation).Observe(seconds)
}

// PlanRefreshed records a plan refresh and, on success, the new version.
func (m *Metrics) PlanRefreshed(ok bool, version uint64) {
	if m == nil {
		return
	}
	if !ok {
		m.planRefreshes.WithLabelValues("error").Inc()
		return
	}
	m.planRefreshes.WithLabelValues("ok").Inc()
	m.planVersion.Set(float64(version))
}

// MutationFinished records the phase an optimistic mutation settled in.
func (m *Metrics) MutationFinished(phase string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(phase).Inc()
}

// WardComposed records the capacity figures of a composed ward view.
// Views without a plan only update the capacity gauge.
func (m *Metrics) WardComposed(wardID string, available int, critical *bool) {
	if m == nil {
		return
	}
	m.wardAvailable.WithLabelValues(wardID).Set(float64(available))
	if critical == nil {
		return
	}
	v := 0.0
	if *critical {
		v = 1
	}
	m.wardCritical.WithLabelValues(wardID).Set(v)
}
