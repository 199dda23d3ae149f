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

	uploadsTotal     *prometheus.CounterVec
	uploadBytes      *prometheus.HistogramVec
	statusPollsTotal *prometheus.CounterVec
	authTotal        *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radix",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "radix",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "radix",
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
			Namespace: "radix",
			Subsystem: "upload",
			Name:      "images_total",
			Help:      "Total accepted X-ray image uploads by role.",
		},
		[]string{"service", "role"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "radix",
			Subsystem: "upload",
			Name:      "image_bytes",
			Help:      "Distribution of accepted upload sizes in bytes.",
			Buckets:   []float64{16 << 10, 64 << 10, 256 << 10, 1 << 20, 2 << 20, 5 << 20},
		},
		[]string{"service"},
	)
	statusPollsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radix",
			Subsystem: "analysis",
			Name:      "status_polls_total",
			Help:      "Total analysis status polls by observed report status.",
		},
		[]string{"service", "status"},
	)
	authTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radix",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Total register and login attempts by outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadBytes,
		statusPollsTotal,
		authTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		uploadsTotal:     uploadsTotal,
		uploadBytes:      uploadBytes,
		statusPollsTotal: statusPollsTotal,
		authTotal:        authTotal,
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

// normalizePath collapses per-resource path segments so label cardinality
// stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/images/status/"):
		return "/api/images/status/{reportId}"
	case strings.HasPrefix(path, "/api/uploads/"):
		return "/api/uploads/{filename}"
	case strings.HasPrefix(path, "/api/reports/") && strings.HasSuffix(path, "/export"):
		return "/api/reports/{reportId}/export"
	case strings.HasPrefix(path, "/api/reports/"):
		return "/api/reports/{reportId}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, role string, sizeBytes int64) {
	if role == "" {
		role = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, role).Inc()
	if sizeBytes > 0 {
		m.uploadBytes.WithLabelValues(service).Observe(float64(sizeBytes))
	}
}

func (m *HTTPServerMetrics) RecordStatusPoll(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.statusPollsTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordAuthAttempt(service, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.authTotal.WithLabelValues(service, operation, outcome).Inc()
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
