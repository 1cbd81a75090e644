// Package metrics exposes Prometheus collectors for poll results and cycles.
//
// Collectors live on a private registry so several engines (or tests) can
// coexist in one process without clashing on the default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records check results and cycle timings.
type Collector struct {
	reg *prometheus.Registry

	results       *prometheus.CounterVec
	latency       prometheus.Histogram
	cycles        prometheus.Counter
	cycleFailures prometheus.Counter
	cycleDuration prometheus.Histogram
}

// New creates a Collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		reg: reg,
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecheck_results_total",
			Help: "Check results by error kind and HTTP status class",
		}, []string{"kind", "class"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitecheck_request_duration_seconds",
			Help:    "HEAD request latency",
			Buckets: prometheus.DefBuckets,
		}),
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "sitecheck_cycles_total",
			Help: "Completed poll cycles",
		}),
		cycleFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "sitecheck_cycle_failures_total",
			Help: "Requests without a response, summed over completed cycles",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitecheck_cycle_duration_seconds",
			Help:    "Time from the first request of a cycle to its last result",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// ObserveResult counts one check result. errorKind is empty when a response
// arrived.
func (c *Collector) ObserveResult(statusCode int, errorKind string, latency time.Duration) {
	kind := errorKind
	if kind == "" {
		kind = "none"
	}
	c.results.WithLabelValues(kind, StatusClass(statusCode)).Inc()
	c.latency.Observe(latency.Seconds())
}

// ObserveCycle records a completed cycle.
func (c *Collector) ObserveCycle(failures int, duration time.Duration) {
	c.cycles.Inc()
	c.cycleFailures.Add(float64(failures))
	c.cycleDuration.Observe(duration.Seconds())
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// StatusClass maps a status code to "1xx" through "5xx", "none" for no
// response and "other" for codes outside the standard range.
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "none"
	case code >= 100 && code < 600:
		return strconv.Itoa(code/100) + "xx"
	default:
		return "other"
	}
}
