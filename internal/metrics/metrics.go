// Package metrics exposes the service's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	fetchesTotal        *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	catalogProjects     prometheus.Gauge
	catalogRegions      prometheus.Gauge
	catalogGeneration   prometheus.Gauge
	sessionsActive      prometheus.Gauge
}

// New creates a fresh registry with every carte metric registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carte",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carte",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	fetchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carte",
		Name:      "source_fetches_total",
		Help:      "Data source fetches by source and outcome",
	}, []string{"source", "outcome"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carte",
		Name:      "source_fetch_duration_seconds",
		Help:      "Duration of data source fetches",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"source"})

	catalogProjects := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carte",
		Name:      "catalog_projects",
		Help:      "Projects in the current catalog",
	})

	catalogRegions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carte",
		Name:      "catalog_regions",
		Help:      "Department features in the current catalog",
	})

	catalogGeneration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carte",
		Name:      "catalog_generation",
		Help:      "Generation number of the current catalog",
	})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carte",
		Name:      "sessions_active",
		Help:      "Live viewer sessions",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		fetchesTotal,
		fetchDuration,
		catalogProjects,
		catalogRegions,
		catalogGeneration,
		sessionsActive,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		fetchesTotal:        fetchesTotal,
		fetchDuration:       fetchDuration,
		catalogProjects:     catalogProjects,
		catalogRegions:      catalogRegions,
		catalogGeneration:   catalogGeneration,
		sessionsActive:      sessionsActive,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle. path
// should be the route pattern, not the raw URL.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveFetch records one data source fetch.
func (m *Metrics) ObserveFetch(source string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.fetchesTotal.WithLabelValues(source, outcome).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// SetCatalog records the size of a newly published catalog.
func (m *Metrics) SetCatalog(generation int64, projects, regions int) {
	if m == nil {
		return
	}
	m.catalogGeneration.Set(float64(generation))
	m.catalogProjects.Set(float64(projects))
	m.catalogRegions.Set(float64(regions))
}

// SetSessions records the live session count.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
