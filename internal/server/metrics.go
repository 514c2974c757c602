package server

import (
	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doctext_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_documents_total",
			Help: "Total number of processed documents",
		},
		[]string{"lane", "status"},
	)

	documentErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_document_errors_total",
			Help: "Total number of failed documents by error code",
		},
		[]string{"code"},
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doctext_processing_duration_seconds",
			Help:    "Document processing duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"lane"},
	)

	textLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doctext_text_length",
			Help:    "Length of extracted text",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"lane"},
	)

	pagesProcessed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doctext_pages_per_document",
			Help:    "Number of pages per processed document",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"lane"},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doctext_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doctext_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	cleanupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doctext_cleanup_failures_total",
			Help: "Total number of scratch artifacts that could not be removed",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctext_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// initErrorMetrics exports a zero series for every error code.
func initErrorMetrics() {
	for _, c := range docerr.Codes {
		documentErrorsTotal.WithLabelValues(string(c))
	}
	documentErrorsTotal.WithLabelValues(string(docerr.CodeInternal))
}

// RecordCleanupFailure counts an artifact the cleaner gave up on.
func RecordCleanupFailure(string, error) { cleanupFailuresTotal.Inc() }
