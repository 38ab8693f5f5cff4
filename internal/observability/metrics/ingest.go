package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics implements ports.IngestObserver.
type IngestMetrics struct {
	service string

	ingestTotal    *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
	ingestInFlight prometheus.Gauge
	chunksTotal    prometheus.Counter
}

func NewIngestMetrics(service string, registerer prometheus.Registerer) *IngestMetrics {
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total ingested documents by status.",
		},
		[]string{"service", "status"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Document ingestion duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	ingestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "in_flight",
			Help:      "Number of in-flight document ingestions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "chunks_total",
			Help:        "Total chunks indexed.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registerer.MustRegister(ingestTotal, ingestDuration, ingestInFlight, chunksTotal)

	return &IngestMetrics{
		service:        service,
		ingestTotal:    ingestTotal,
		ingestDuration: ingestDuration,
		ingestInFlight: ingestInFlight,
		chunksTotal:    chunksTotal,
	}
}

func (m *IngestMetrics) StartIngest() {
	m.ingestInFlight.Inc()
}

func (m *IngestMetrics) FinishIngest(status string, chunks int, seconds float64) {
	m.ingestInFlight.Dec()
	if status == "" {
		status = "unknown"
	}
	m.ingestTotal.WithLabelValues(m.service, status).Inc()
	m.ingestDuration.WithLabelValues(m.service, status).Observe(seconds)
	if chunks > 0 {
		m.chunksTotal.Add(float64(chunks))
	}
}
