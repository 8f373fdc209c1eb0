// Package metrics exposes prometheus collectors for the dispatcher, the
// query cache, bulk jobs and the gin surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "attendboard"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	dispatches    *prometheus.CounterVec
	dispatchTime  *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	jobs          *prometheus.CounterVec
	jobTime       prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
}

// New creates and registers every collector, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mockapi",
			Name:      "dispatch_total",
			Help:      "Mock API calls by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		dispatchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mockapi",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent inside the dispatcher.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"route"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by result.",
		}, []string{"result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "bulk_jobs_total",
			Help:      "Finished bulk attendance jobs by status.",
		}, []string{"status"}),
		jobTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "bulk_job_duration_seconds",
			Help:      "Wall time of bulk attendance jobs.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by route group.",
		}, []string{"group"}),
	}
	m.Registry.MustRegister(
		m.dispatches, m.dispatchTime, m.cacheLookups, m.jobs, m.jobTime,
		m.httpRequests, m.httpDurations, m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDispatch records one mock API call.
func (m *Metrics) ObserveDispatch(method, route string, status int, elapsed time.Duration) {
	m.dispatches.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.dispatchTime.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveCache records a query cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveJob records a finished bulk job.
func (m *Metrics) ObserveJob(status string, elapsed time.Duration) {
	m.jobs.WithLabelValues(status).Inc()
	m.jobTime.Observe(elapsed.Seconds())
}

// ObserveHTTP records a request served by gin.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveRateLimited records a request rejected by the rate limiter.
func (m *Metrics) ObserveRateLimited(group string) {
	m.rateLimited.WithLabelValues(group).Inc()
}
