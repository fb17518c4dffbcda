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

	answerTotal        *prometheus.CounterVec
	answerModeTotal    *prometheus.CounterVec
	answerAttempts     *prometheus.HistogramVec
	answerDuration     *prometheus.HistogramVec
	retrievedChunks    *prometheus.HistogramVec
	quotaFallbackTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sdb",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdb",
			Subsystem: "answer",
			Name:      "requests_total",
			Help:      "Total answered questions by terminal outcome.",
		},
		[]string{"service", "outcome"},
	)
	answerModeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdb",
			Subsystem: "answer",
			Name:      "mode_requests_total",
			Help:      "Total answered questions by retrieval mode.",
		},
		[]string{"service", "mode"},
	)
	answerAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdb",
			Subsystem: "answer",
			Name:      "generation_attempts",
			Help:      "Distribution of generation attempts per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdb",
			Subsystem: "answer",
			Name:      "duration_seconds",
			Help:      "End-to-end answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdb",
			Subsystem: "answer",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved context chunks per question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	quotaFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdb",
			Subsystem: "answer",
			Name:      "document_fallback_total",
			Help:      "Total answers degraded to document excerpts.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answerTotal,
		answerModeTotal,
		answerAttempts,
		answerDuration,
		retrievedChunks,
		quotaFallbackTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		answerTotal:        answerTotal,
		answerModeTotal:    answerModeTotal,
		answerAttempts:     answerAttempts,
		answerDuration:     answerDuration,
		retrievedChunks:    retrievedChunks,
		quotaFallbackTotal: quotaFallbackTotal,
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
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordAnswer captures per-question pipeline observations: terminal
// outcome, attempt count, retrieved context size and total latency.
func (m *HTTPServerMetrics) RecordAnswer(service, outcome string, attempts, sourceCount int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.answerTotal.WithLabelValues(service, outcome).Inc()
	m.answerAttempts.WithLabelValues(service).Observe(float64(attempts))
	m.retrievedChunks.WithLabelValues(service).Observe(float64(sourceCount))
	m.answerDuration.WithLabelValues(service).Observe(duration.Seconds())

	if outcome == "document_fallback" {
		m.quotaFallbackTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordAnswerMode(service, mode string) {
	if mode == "" {
		mode = "unknown"
	}
	m.answerModeTotal.WithLabelValues(service, mode).Inc()
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
