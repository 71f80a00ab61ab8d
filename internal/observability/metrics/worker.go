package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	documentTotal    *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	documentInFlight *prometheus.GaugeVec
	chunksPerDoc     *prometheus.HistogramVec
	queueLag         *prometheus.GaugeVec
}

func NewWorkerMetrics() *WorkerMetrics {
	registry := prometheus.NewRegistry()

	documentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hqe",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by outcome.",
		},
		[]string{"service", "outcome"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hqe",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document indexing duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service"},
	)
	documentInFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hqe",
			Subsystem: "worker",
			Name:      "document_in_flight",
			Help:      "Documents currently being indexed.",
		},
		[]string{"service"},
	)
	chunksPerDoc := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hqe",
			Subsystem: "worker",
			Name:      "document_chunks",
			Help:      "Distribution of chunk counts per indexed document.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250, 500},
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hqe",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document upload and the start of indexing.",
		},
		[]string{"service"},
	)

	registry.MustRegister(documentTotal, documentDuration, documentInFlight, chunksPerDoc, queueLag)

	return &WorkerMetrics{
		registry:         registry,
		documentTotal:    documentTotal,
		documentDuration: documentDuration,
		documentInFlight: documentInFlight,
		chunksPerDoc:     chunksPerDoc,
		queueLag:         queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument(service string) {
	m.documentInFlight.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.documentInFlight.WithLabelValues(service).Dec()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.documentTotal.WithLabelValues(service, outcome).Inc()
	m.documentDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveChunks(service string, count int) {
	m.chunksPerDoc.WithLabelValues(service).Observe(float64(count))
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	m.queueLag.WithLabelValues(service).Set(lag.Seconds())
}
