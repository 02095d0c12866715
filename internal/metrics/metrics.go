// Package metrics exposes Prometheus collectors for dialogue turns and the
// HTTP surface. All methods are safe on a nil *Collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pensionguru"

type Collectors struct {
	registry *prometheus.Registry

	turns              *prometheus.CounterVec
	completionLatency  *prometheus.HistogramVec
	extractedFields    *prometheus.CounterVec
	persistenceFaults  *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// New registers every collector on a private registry.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dialogue",
				Name:      "turns_total",
				Help:      "Dialogue turns by the path that produced the reply.",
			},
			[]string{"path"},
		),
		completionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dialogue",
				Name:      "completion_latency_seconds",
				Help:      "Latency of completion calls.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30},
			},
			[]string{"status"},
		),
		extractedFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dialogue",
				Name:      "extracted_fields_total",
				Help:      "Profile fields written by the fact extractor.",
			},
			[]string{"field"},
		),
		persistenceFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dialogue",
				Name:      "persistence_faults_total",
				Help:      "Store operations that failed during a turn.",
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.turns,
		c.completionLatency,
		c.extractedFields,
		c.persistenceFaults,
		c.httpRequests,
		c.httpRequestLatency,
	)
	return c
}

func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) TurnCompleted(path string) {
	if c == nil {
		return
	}
	c.turns.WithLabelValues(path).Inc()
}

func (c *Collectors) CompletionObserved(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.completionLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (c *Collectors) FieldExtracted(field string) {
	if c == nil {
		return
	}
	c.extractedFields.WithLabelValues(field).Inc()
}

func (c *Collectors) PersistenceFault(operation string) {
	if c == nil {
		return
	}
	c.persistenceFaults.WithLabelValues(operation).Inc()
}

func (c *Collectors) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
