package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API
// and the solver pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec
	solveTotal      *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	exportTotal     *prometheus.CounterVec
}

// NewMetricsService registers the core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solve_duration_seconds",
		Help:    "Duration of timetable solve runs",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"outcome"})

	solveTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solve_runs_total",
		Help: "Total timetable solve runs by outcome",
	}, []string{"outcome"})

	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "view_cache_hits_total",
		Help: "Total timetable view cache hits",
	}, []string{"view"})

	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "view_cache_misses_total",
		Help: "Total timetable view cache misses",
	}, []string{"view"})

	exportTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_total",
		Help: "Total export jobs by format",
	}, []string{"format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, solveDuration, solveTotal, cacheHits, cacheMisses, exportTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		solveDuration:   solveDuration,
		solveTotal:      solveTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		exportTotal:     exportTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request timing and totals.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSolve records one solve run by outcome.
func (m *MetricsService) ObserveSolve(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	m.solveTotal.WithLabelValues(outcome).Inc()
}

// CacheHit records a view cache hit.
func (m *MetricsService) CacheHit(view string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(view).Inc()
}

// CacheMiss records a view cache miss.
func (m *MetricsService) CacheMiss(view string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(view).Inc()
}

// ObserveExport counts one enqueued export by format.
func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exportTotal.WithLabelValues(format).Inc()
}
