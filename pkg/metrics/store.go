package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreMetrics provides observability for collection operations.
//
// This interface is optional - if not provided to a collection, operations
// proceed without metrics collection (zero overhead).
//
// Example usage:
//
//	// With metrics enabled
//	collection, err := tree.New(root, tree.WithMetrics(metrics.NewStoreMetrics()))
//
//	// Without metrics (no-op)
//	collection, err := tree.New(root)
type StoreMetrics interface {
	// RecordOperation records a completed collection operation.
	//
	// Parameters:
	//   - collection: Collection name (the base name of its root)
	//   - operation: Operation name (e.g., "Find", "Create", "Update")
	//   - duration: Time taken to complete the operation
	//   - err: Error if operation failed, nil if successful
	RecordOperation(collection, operation string, duration time.Duration, err error)

	// RecordDocuments records how many documents an operation returned or
	// changed (Find result size, Update/Remove counts).
	RecordDocuments(collection, operation string, count int)

	// RecordArchive records an external archive process invocation.
	//
	// Parameters:
	//   - kind: Archive kind ("compress", "extract", "copy")
	//   - duration: Time taken by the external process
	//   - err: Error if the process failed
	RecordArchive(kind string, duration time.Duration, err error)
}

// storeMetrics is the Prometheus implementation of StoreMetrics.
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	documents         *prometheus.HistogramVec
	archiveTotal      *prometheus.CounterVec
	archiveDuration   *prometheus.HistogramVec
}

var (
	sharedStoreMetrics StoreMetrics
	storeMetricsOnce   sync.Once
)

// NewStoreMetrics returns the Prometheus-backed StoreMetrics instance.
//
// The collectors are registered once in the global registry and shared by
// every collection; the collection name is a label.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewStoreMetrics() StoreMetrics {
	if !IsEnabled() {
		return NewNoopStoreMetrics()
	}

	storeMetricsOnce.Do(func() {
		sharedStoreMetrics = newStoreMetrics(GetRegistry())
	})
	return sharedStoreMetrics
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	return &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodocs_store_operations_total",
				Help: "Total number of collection operations by collection, operation, and status",
			},
			[]string{"collection", "operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodocs_store_operation_duration_seconds",
				Help: "Duration of collection operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms
					1.0,    // 1s
					10.0,   // 10s
				},
			},
			[]string{"collection", "operation"},
		),
		documents: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodocs_store_documents",
				Help:    "Number of documents returned or changed per operation",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 .. 16384
			},
			[]string{"collection", "operation"},
		),
		archiveTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodocs_archive_processes_total",
				Help: "Total number of external archive processes by kind and status",
			},
			[]string{"kind", "status"},
		),
		archiveDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodocs_archive_process_duration_seconds",
				Help: "Duration of external archive processes in seconds",
				Buckets: []float64{
					0.01, // 10ms
					0.1,  // 100ms
					1.0,  // 1s
					10.0, // 10s
					60.0, // 1m
				},
			},
			[]string{"kind"},
		),
	}
}

func (m *storeMetrics) RecordOperation(collection, operation string, duration time.Duration, err error) {
	status, code := statusOf(err)
	m.operationsTotal.WithLabelValues(collection, operation, status, code).Inc()
	m.operationDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

func (m *storeMetrics) RecordDocuments(collection, operation string, count int) {
	m.documents.WithLabelValues(collection, operation).Observe(float64(count))
}

func (m *storeMetrics) RecordArchive(kind string, duration time.Duration, err error) {
	status, _ := statusOf(err)
	m.archiveTotal.WithLabelValues(kind, status).Inc()
	m.archiveDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// coder is implemented by errors that expose a stable category name.
type coder interface {
	ErrorCode() string
}

func statusOf(err error) (status, code string) {
	if err == nil {
		return "success", ""
	}
	var c coder
	if errors.As(err, &c) {
		return "error", c.ErrorCode()
	}
	return "error", "unknown"
}

// noopStoreMetrics is a no-op implementation of StoreMetrics with zero overhead.
type noopStoreMetrics struct{}

// NewNoopStoreMetrics returns a StoreMetrics that records nothing.
func NewNoopStoreMetrics() StoreMetrics {
	return noopStoreMetrics{}
}

func (noopStoreMetrics) RecordOperation(collection, operation string, duration time.Duration, err error) {
}
func (noopStoreMetrics) RecordDocuments(collection, operation string, count int)     {}
func (noopStoreMetrics) RecordArchive(kind string, duration time.Duration, err error) {}
