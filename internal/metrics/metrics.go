package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"serverless-bridge/pkg/gateway"
)

// Collector tracks adapter invocations for Prometheus export
type Collector struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_invocations_total",
			Help: "Adapter invocations by method and outbound status code.",
		}, []string{"method", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_failures_total",
			Help: "Failed adapter invocations by failure kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_invocation_duration_seconds",
			Help:    "Adapter invocation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	c.registry.MustRegister(
		c.invocations,
		c.failures,
		c.duration,
		collectors.NewGoCollector(),
	)
	return c
}

// ObserveInvocation implements gateway.Observer
func (c *Collector) ObserveInvocation(method string, statusCode int, kind gateway.Kind, duration time.Duration) {
	method = methodLabel(method)
	c.invocations.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	if kind != "" {
		c.failures.WithLabelValues(string(kind)).Inc()
	}
	c.duration.WithLabelValues(method).Observe(duration.Seconds())
}

// methodLabel keeps the method label set bounded: anything outside the
// standard methods is reported as OTHER.
func methodLabel(method string) string {
	switch method {
	case "":
		return "UNKNOWN"
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	default:
		return "OTHER"
	}
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
