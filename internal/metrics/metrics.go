// Package metrics exposes dashboard traffic and report query metrics for
// Prometheus scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cloudauditor"

// Recorder owns a private registry and the collectors registered on it.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	rowsRendered    *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	r.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"method", "route"},
	)
	r.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_queries_total",
			Help:      "Report statements executed, by report and outcome.",
		},
		[]string{"report", "outcome"},
	)
	r.queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_query_duration_seconds",
			Help:      "Report statement execution time.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"report"},
	)
	r.rowsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_rows_rendered_total",
			Help:      "Rows rendered, by report and output mode.",
		},
		[]string{"report", "mode"},
	)

	cs := []prometheus.Collector{
		r.requestsTotal,
		r.requestDuration,
		r.queriesTotal,
		r.queryDuration,
		r.rowsRendered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ObserveRequest records one finished HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveQuery records one report statement execution.
func (r *Recorder) ObserveQuery(report string, d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.queriesTotal.WithLabelValues(report, outcome).Inc()
	r.queryDuration.WithLabelValues(report).Observe(d.Seconds())
}

// ObserveRender records the rows written for one response.
func (r *Recorder) ObserveRender(report, mode string, rows int) {
	if r == nil {
		return
	}
	r.rowsRendered.WithLabelValues(report, mode).Add(float64(rows))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
