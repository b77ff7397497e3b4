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

	uploadsTotal          *prometheus.CounterVec
	uploadBytes           *prometheus.HistogramVec
	downloadsTotal        *prometheus.CounterVec
	recordsCreatedTotal   *prometheus.CounterVec
	recordsDeletedTotal   *prometheus.CounterVec
	statusTransitionTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onb",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onb",
			Subsystem: "documents",
			Name:      "uploads_total",
			Help:      "Total document upload attempts by category and outcome.",
		},
		[]string{"service", "category", "outcome"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onb",
			Subsystem: "documents",
			Name:      "upload_bytes",
			Help:      "Distribution of accepted upload sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"service", "category"},
	)
	downloadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onb",
			Subsystem: "documents",
			Name:      "downloads_total",
			Help:      "Total document download requests.",
		},
		[]string{"service", "outcome"},
	)
	recordsCreatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onb",
			Subsystem: "records",
			Name:      "created_total",
			Help:      "Total onboarding records created.",
		},
		[]string{"service"},
	)
	recordsDeletedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onb",
			Subsystem: "records",
			Name:      "deleted_total",
			Help:      "Total onboarding records removed by administrators.",
		},
		[]string{"service"},
	)
	statusTransitionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onb",
			Subsystem: "records",
			Name:      "status_transitions_total",
			Help:      "Total review status transitions by target state.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadBytes,
		downloadsTotal,
		recordsCreatedTotal,
		recordsDeletedTotal,
		statusTransitionTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		uploadsTotal:          uploadsTotal,
		uploadBytes:           uploadBytes,
		downloadsTotal:        downloadsTotal,
		recordsCreatedTotal:   recordsCreatedTotal,
		recordsDeletedTotal:   recordsDeletedTotal,
		statusTransitionTotal: statusTransitionTotal,
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

// normalizePath collapses id-bearing paths so label cardinality stays flat.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/onboarding/files/"):
		return "/v1/onboarding/files/{handle}"
	case strings.HasPrefix(path, "/v1/onboarding/user/"):
		return "/v1/onboarding/user/{user_id}"
	case strings.HasPrefix(path, "/v1/onboarding/") && strings.HasSuffix(path, "/status"):
		return "/v1/onboarding/{id}/status"
	case strings.HasPrefix(path, "/v1/onboarding/"):
		return "/v1/onboarding/{id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, category, outcome string, size int64) {
	if category == "" {
		category = "uncategorized"
	}
	m.uploadsTotal.WithLabelValues(service, category, outcome).Inc()
	if outcome == "accepted" && size > 0 {
		m.uploadBytes.WithLabelValues(service, category).Observe(float64(size))
	}
}

func (m *HTTPServerMetrics) RecordDownload(service, outcome string) {
	m.downloadsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordRecordCreated(service string) {
	m.recordsCreatedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRecordDeleted(service string) {
	m.recordsDeletedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordStatusTransition(service, status string) {
	m.statusTransitionTotal.WithLabelValues(service, status).Inc()
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
