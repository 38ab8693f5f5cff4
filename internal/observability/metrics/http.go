package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const namespace = "evidence"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	challengeTotal    *prometheus.CounterVec
	fusedCandidates   prometheus.Histogram
	rerankedResults   prometheus.Histogram
	stageDuration     *prometheus.HistogramVec
	transcriptTurns   *prometheus.CounterVec
	websocketSessions prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by traffic control by reason.",
		},
		[]string{"service", "reason"},
	)
	challengeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "challenge",
			Name:      "runs_total",
			Help:      "Completed challenge runs by treatment and outcome.",
		},
		[]string{"service", "treatment", "outcome"},
	)
	fusedCandidates := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "challenge",
			Name:        "fused_candidates",
			Help:        "Candidates surviving reciprocal rank fusion per run.",
			Buckets:     []float64{0, 1, 2, 5, 10, 20, 40},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	rerankedResults := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "challenge",
			Name:        "returned_results",
			Help:        "Results handed to the synthesizer per run.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "challenge",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each retrieval stage in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	transcriptTurns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transcript",
			Name:      "segments_total",
			Help:      "Transcript segments received by source.",
		},
		[]string{"service", "source"},
	)
	websocketSessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "transcript",
			Name:        "websocket_connections",
			Help:        "Open transcript WebSocket connections.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		challengeTotal,
		fusedCandidates,
		rerankedResults,
		stageDuration,
		transcriptTurns,
		websocketSessions,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		service:           service,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		rejectedTotal:     rejectedTotal,
		challengeTotal:    challengeTotal,
		fusedCandidates:   fusedCandidates,
		rerankedResults:   rerankedResults,
		stageDuration:     stageDuration,
		transcriptTurns:   transcriptTurns,
		websocketSessions: websocketSessions,
	}
}

func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware labels requests by the matched ServeMux pattern so path
// parameters do not explode label cardinality.
func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

// ObserveChallenge implements ports.ChallengeObserver.
func (m *HTTPServerMetrics) ObserveChallenge(treatment domain.Treatment, outcome string, fused, reranked int, stages map[string]float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.challengeTotal.WithLabelValues(m.service, string(treatment), outcome).Inc()
	m.fusedCandidates.Observe(float64(fused))
	m.rerankedResults.Observe(float64(reranked))
	for stage, seconds := range stages {
		m.stageDuration.WithLabelValues(m.service, stage).Observe(seconds)
	}
}

func (m *HTTPServerMetrics) RecordTranscriptSegment(source string) {
	m.transcriptTurns.WithLabelValues(m.service, source).Inc()
}

func (m *HTTPServerMetrics) WebSocketOpened() {
	m.websocketSessions.Inc()
}

func (m *HTTPServerMetrics) WebSocketClosed() {
	m.websocketSessions.Dec()
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
