package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	resolutionResults  *prometheus.HistogramVec
	pathFailuresTotal  *prometheus.CounterVec
	searchRequestTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hqe",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hqe",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hqe",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hqe",
			Subsystem: "pipeline",
			Name:      "resolutions_total",
			Help:      "Total query resolutions by routed type and merge strategy.",
		},
		[]string{"service", "query_type", "strategy", "outcome"},
	)
	resolutionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hqe",
			Subsystem: "pipeline",
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end resolution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "query_type"},
	)
	resolutionResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hqe",
			Subsystem: "pipeline",
			Name:      "resolution_results",
			Help:      "Distribution of merged result counts per resolution.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "query_type"},
	)
	pathFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hqe",
			Subsystem: "pipeline",
			Name:      "path_failures_total",
			Help:      "Total degraded resolutions by failed path.",
		},
		[]string{"service", "path"},
	)
	searchRequestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hqe",
			Subsystem: "pipeline",
			Name:      "search_requests_total",
			Help:      "Total direct document searches by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal, requestDuration, requestInFlight,
		resolutionsTotal, resolutionDuration, resolutionResults,
		pathFailuresTotal, searchRequestTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		resolutionsTotal:   resolutionsTotal,
		resolutionDuration: resolutionDuration,
		resolutionResults:  resolutionResults,
		pathFailuresTotal:  pathFailuresTotal,
		searchRequestTotal: searchRequestTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		path := normalizePath(r.URL.Path)
		m.requestTotal.WithLabelValues(service, r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses identifier segments so label cardinality
// stays bounded.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/v1/documents/") {
		return "/v1/documents/{id}"
	}
	return path
}

func (m *HTTPServerMetrics) RecordResolution(service, queryType, strategy string, success bool, resultCount int, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	if strategy == "" {
		strategy = "none"
	}
	m.resolutionsTotal.WithLabelValues(service, queryType, strategy, outcome).Inc()
	m.resolutionDuration.WithLabelValues(service, queryType).Observe(duration.Seconds())
	m.resolutionResults.WithLabelValues(service, queryType).Observe(float64(resultCount))
}

func (m *HTTPServerMetrics) RecordPathFailure(service, path string) {
	m.pathFailuresTotal.WithLabelValues(service, path).Inc()
}

func (m *HTTPServerMetrics) RecordSearch(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.searchRequestTotal.WithLabelValues(service, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
