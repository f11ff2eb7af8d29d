package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "safelink"

// Metrics holds the service collectors, registered on a dedicated registry.
type Metrics struct {
	registry  *prometheus.Registry
	Admission *prometheus.CounterVec
	DNSLookup *prometheus.HistogramVec
	Requests  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Admission: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_total",
			Help:      "Admission decisions partitioned by stage, outcome and reason.",
		}, []string{"stage", "outcome", "reason"}),
		DNSLookup: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dns_lookup_seconds",
			Help:      "Latency of DNS resolutions made while validating URLs.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency partitioned by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Admission,
		m.DNSLookup,
		m.Requests,
		m.Duration,
	)

	return m
}

// ObserveAdmission counts one admission decision.
func (m *Metrics) ObserveAdmission(stage, outcome, reason string) {
	m.Admission.WithLabelValues(stage, outcome, reason).Inc()
}

// ObserveLookup records the latency of one DNS resolution.
func (m *Metrics) ObserveLookup(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.DNSLookup.WithLabelValues(result).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware returns a Huma middleware recording request counts and latency per route template.
func (m *Metrics) Middleware() func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		route := "unknown"
		if op := ctx.Operation(); op != nil {
			route = op.Path
		}

		status := ctx.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.Requests.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
		m.Duration.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
	}
}
