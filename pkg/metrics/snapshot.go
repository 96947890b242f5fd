package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SnapshotMetrics provides observability for remote snapshot transfers.
type SnapshotMetrics interface {
	// RecordTransfer records one upload or download.
	//
	// Parameters:
	//   - operation: "PutObject" or "GetObject"
	//   - bytes: Bytes transferred (0 on failure)
	//   - duration: Time taken
	//   - err: Error if the transfer failed
	RecordTransfer(operation string, bytes int64, duration time.Duration, err error)
}

// snapshotMetrics is the Prometheus implementation of SnapshotMetrics.
type snapshotMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
}

var (
	sharedSnapshotMetrics SnapshotMetrics
	snapshotMetricsOnce   sync.Once
)

// NewSnapshotMetrics returns the Prometheus-backed SnapshotMetrics instance,
// or a no-op implementation if metrics are not enabled.
func NewSnapshotMetrics() SnapshotMetrics {
	if !IsEnabled() {
		return noopSnapshotMetrics{}
	}

	snapshotMetricsOnce.Do(func() {
		sharedSnapshotMetrics = newSnapshotMetrics(GetRegistry())
	})
	return sharedSnapshotMetrics
}

func newSnapshotMetrics(reg prometheus.Registerer) *snapshotMetrics {
	return &snapshotMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodocs_snapshot_operations_total",
				Help: "Total number of S3 snapshot operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodocs_snapshot_operation_duration_seconds",
				Help: "Duration of S3 snapshot operations in seconds",
				Buckets: []float64{
					0.05,  // 50ms
					0.25,  // 250ms
					1.0,   // 1s
					5.0,   // 5s
					30.0,  // 30s
					120.0, // 2m
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodocs_snapshot_bytes_transferred_total",
				Help: "Total bytes transferred in S3 snapshot operations",
			},
			[]string{"operation"},
		),
	}
}

func (m *snapshotMetrics) RecordTransfer(operation string, bytes int64, duration time.Duration, err error) {
	status, _ := statusOf(err)
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err == nil && bytes > 0 {
		m.bytesTransferred.WithLabelValues(operation).Add(float64(bytes))
	}
}

type noopSnapshotMetrics struct{}

func (noopSnapshotMetrics) RecordTransfer(operation string, bytes int64, duration time.Duration, err error) {
}
