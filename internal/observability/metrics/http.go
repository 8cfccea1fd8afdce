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

	chatRequestsTotal    *prometheus.CounterVec
	chatCacheTotal       *prometheus.CounterVec
	chatRoutingTotal     *prometheus.CounterVec
	chatRetrievalHits    *prometheus.CounterVec
	chatNoContextTotal   *prometheus.CounterVec
	chatFallbackTotal    *prometheus.CounterVec
	chatCandidates       *prometheus.HistogramVec
	chatDuration         *prometheus.HistogramVec
	sourceUploadsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faq",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total answered chat requests.",
		},
		[]string{"service"},
	)
	chatCacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "cache_total",
			Help:      "Answer cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	chatRoutingTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "routing_total",
			Help:      "Routing decisions by category.",
		},
		[]string{"service", "category"},
	)
	chatRetrievalHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "retrieval_hit_total",
			Help:      "Total chat requests with at least one retrieved record.",
		},
		[]string{"service"},
	)
	chatNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "no_context_total",
			Help:      "Total chat requests with an empty retrieval.",
		},
		[]string{"service"},
	)
	chatFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "fallback_total",
			Help:      "Fallback answers served, by reason.",
		},
		[]string{"service", "reason"},
	)
	chatCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "context_records",
			Help:      "Distribution of records assembled into the answer context.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faq",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "End-to-end chat request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	sourceUploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faq",
			Subsystem: "sources",
			Name:      "uploads_total",
			Help:      "Accepted workbook uploads.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatCacheTotal,
		chatRoutingTotal,
		chatRetrievalHits,
		chatNoContextTotal,
		chatFallbackTotal,
		chatCandidates,
		chatDuration,
		sourceUploadsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		chatRequestsTotal:  chatRequestsTotal,
		chatCacheTotal:     chatCacheTotal,
		chatRoutingTotal:   chatRoutingTotal,
		chatRetrievalHits:  chatRetrievalHits,
		chatNoContextTotal: chatNoContextTotal,
		chatFallbackTotal:  chatFallbackTotal,
		chatCandidates:     chatCandidates,
		chatDuration:       chatDuration,
		sourceUploadsTotal: sourceUploadsTotal,
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
	case strings.HasPrefix(path, "/v1/sources/"):
		return "/v1/sources/{source_id}"
	case strings.HasPrefix(path, "/v1/admin/records/"):
		return "/v1/admin/records/{category}/{record_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordChatObservation(service string, contextRecords int, duration time.Duration) {
	m.chatRequestsTotal.WithLabelValues(service).Inc()
	m.chatCandidates.WithLabelValues(service).Observe(float64(contextRecords))
	m.chatDuration.WithLabelValues(service).Observe(duration.Seconds())

	if contextRecords > 0 {
		m.chatRetrievalHits.WithLabelValues(service).Inc()
		return
	}
	m.chatNoContextTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordCacheLookup(service string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.chatCacheTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordRoutingDecision(service, category string) {
	if category == "" {
		category = "unknown"
	}
	m.chatRoutingTotal.WithLabelValues(service, category).Inc()
}

func (m *HTTPServerMetrics) RecordFallback(service, reason string) {
	if reason == "" {
		return
	}
	m.chatFallbackTotal.WithLabelValues(service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordSourceUpload(service string) {
	m.sourceUploadsTotal.WithLabelValues(service).Inc()
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
