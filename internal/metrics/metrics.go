package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Optimizations counts optimization runs by outcome (ok, no_work, error)
	Optimizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimization runs by outcome."},
		[]string{"outcome"},
	)
	// OptimizationDuration records optimization processing time in seconds
	OptimizationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_optimization_duration_seconds", Help: "Route optimization processing time in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}},
	)
	// ProgressEvents counts progress events by event type and outcome
	ProgressEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_progress_events_total", Help: "Route progress events by type and outcome."},
		[]string{"event", "outcome"},
	)
	// ProviderFallbacks counts silent fallbacks to local estimates by provider
	ProviderFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_fallbacks_total", Help: "External provider failures recovered via local fallback."},
		[]string{"provider"},
	)
	// AuditDeliveries counts audit event delivery outcomes
	AuditDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "audit_deliveries_total", Help: "Audit sink deliveries by status."},
		[]string{"status"},
	)
	// AuditLatency tracks audit delivery latencies in milliseconds
	AuditLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "audit_delivery_latency_ms", Help: "Audit sink delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Optimizations)
		Registry.MustRegister(OptimizationDuration)
		Registry.MustRegister(ProgressEvents)
		Registry.MustRegister(ProviderFallbacks)
		Registry.MustRegister(AuditDeliveries)
		Registry.MustRegister(AuditLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
