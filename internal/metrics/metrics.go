// Package metrics holds the Prometheus collectors for the store and its HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jsonstore",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jsonstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "pattern", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jsonstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "pattern"},
	)

	storageOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jsonstore",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of storage engine operations by result.",
		},
		[]string{"op", "result"},
	)

	storageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jsonstore",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage engine operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"op"},
	)

	storageBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jsonstore",
			Subsystem: "storage",
			Name:      "document_bytes",
			Help:      "Serialized size of written documents, before compression.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10), // 256B to 64MiB
		},
		[]string{"encoding"},
	)

	encodingMigrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jsonstore",
			Subsystem: "storage",
			Name:      "encoding_migrations_total",
			Help:      "Documents that moved between plain and compressed encodings on update.",
		},
		[]string{"to"},
	)

	scanSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jsonstore",
			Subsystem: "storage",
			Name:      "scan_skipped_entries_total",
			Help:      "Entries skipped by bulk scans because they could not be decoded.",
		},
	)

	patchResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jsonstore",
			Subsystem: "patch",
			Name:      "requests_total",
			Help:      "Patch requests by outcome.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		storageOps,
		storageDuration,
		storageBytes,
		encodingMigrations,
		scanSkipped,
		patchResults,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
//
// Requests are labelled with the ServeMux pattern that matched them, so the
// label set stays bounded regardless of document IDs.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.Status)).Inc()
		httpDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// RecordStorageOp records the outcome and latency of a storage operation.
func RecordStorageOp(op, result string, start time.Time) {
	storageOps.WithLabelValues(op, result).Inc()
	storageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordDocumentWrite records the serialized size of a written document.
func RecordDocumentWrite(encoding string, size int) {
	storageBytes.WithLabelValues(encoding).Observe(float64(size))
}

// RecordEncodingMigration records a document moving to another encoding.
func RecordEncodingMigration(to string) {
	encodingMigrations.WithLabelValues(to).Inc()
}

// RecordScanSkip records an undecodable entry skipped during a bulk scan.
func RecordScanSkip() {
	scanSkipped.Inc()
}

// RecordPatch records the outcome of a patch request; kind is "ok" on success.
func RecordPatch(kind string) {
	patchResults.WithLabelValues(kind).Inc()
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// WriteHeader records the status code before delegating.
func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap returns the underlying ResponseWriter.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
