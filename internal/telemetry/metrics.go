// Package telemetry exposes prometheus metrics for the pipeline and an
// optional WebSocket progress broadcaster, adapted from the teacher's
// internal/server/metrics.go (prometheus/client_golang promauto vars) and
// internal/server/websocket_handlers.go (gorilla/websocket connection
// handling), retargeted from an HTTP OCR service onto a book-conversion CLI
// pipeline's per-stage/per-page events.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrestore_pages_processed_total",
			Help: "Total number of pages that completed the pipeline",
		},
		[]string{"book", "status"}, // status: ok, skipped, error
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrestore_stage_duration_seconds",
			Help:    "Duration of a pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	pagesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrestore_pages_skipped_total",
			Help: "Total number of pages skipped due to a per-page error (spec section 7: PageError is recoverable)",
		},
		[]string{"book", "reason"},
	)

	booksCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrestore_books_completed_total",
			Help: "Total number of books that completed conversion",
		},
	)
)

// RecordPage records the completion status of one page.
func RecordPage(book, status string) {
	pagesProcessedTotal.WithLabelValues(book, status).Inc()
}

// RecordPageSkipped records a recoverable per-page failure (spec section 7).
func RecordPageSkipped(book, reason string) {
	pagesSkippedTotal.WithLabelValues(book, reason).Inc()
}

// RecordBookCompleted records one finished book.
func RecordBookCompleted() {
	booksCompletedTotal.Inc()
}

// StageTimer starts timing stage and returns a func to call when it
// finishes: defer telemetry.StageTimer("margin")().
func StageTimer(stage string) func() {
	timer := prometheus.NewTimer(stageDurationSeconds.WithLabelValues(stage))
	return func() {
		timer.ObserveDuration()
	}
}
