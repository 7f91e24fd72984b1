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

	uploadTotal    *prometheus.CounterVec
	uploadBytes    *prometheus.HistogramVec
	searchTotal    *prometheus.CounterVec
	searchMatches  *prometheus.HistogramVec
	searchDuration *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finpaper",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finpaper",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finpaper",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finpaper",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total accepted document uploads by content type.",
		},
		[]string{"service", "mime_type"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finpaper",
			Subsystem: "ingest",
			Name:      "upload_bytes",
			Help:      "Distribution of accepted upload sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"service"},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finpaper",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total natural-language search requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	searchMatches := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finpaper",
			Subsystem: "search",
			Name:      "matches",
			Help:      "Distribution of matched documents per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finpaper",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadTotal,
		uploadBytes,
		searchTotal,
		searchMatches,
		searchDuration,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		uploadTotal:     uploadTotal,
		uploadBytes:     uploadBytes,
		searchTotal:     searchTotal,
		searchMatches:   searchMatches,
		searchDuration:  searchDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasSuffix(path, "/reprocess") && strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}/reprocess"
	case strings.HasPrefix(path, "/v1/documents/") && path != "/v1/documents/stats":
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/files/"):
		return "/files/{key}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, mimeType string, size int64) {
	if mimeType == "" {
		mimeType = "unknown"
	}
	m.uploadTotal.WithLabelValues(service, mimeType).Inc()
	if size > 0 {
		m.uploadBytes.WithLabelValues(service).Observe(float64(size))
	}
}

func (m *HTTPServerMetrics) RecordSearch(service string, success bool, matches int, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.searchTotal.WithLabelValues(service, outcome).Inc()
	m.searchDuration.WithLabelValues(service).Observe(duration.Seconds())
	if success {
		m.searchMatches.WithLabelValues(service).Observe(float64(matches))
	}
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
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
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
