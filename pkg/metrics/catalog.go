package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CatalogMetrics provides observability for the collection catalog.
type CatalogMetrics interface {
	// RecordStorageOperation records a low-level catalog operation.
	//
	// Parameters:
	//   - operation: Storage operation (e.g., "get", "put", "delete", "scan")
	//   - duration: Time taken
	//   - err: Error if failed
	RecordStorageOperation(operation string, duration time.Duration, err error)

	// SetCollections updates the number of registered collections.
	SetCollections(count int)
}

type catalogMetrics struct {
	catalogType        string
	storageOpsTotal    *prometheus.CounterVec
	storageOpsDuration *prometheus.HistogramVec
	collections        *prometheus.GaugeVec
}

type catalogCollectors struct {
	storageOpsTotal    *prometheus.CounterVec
	storageOpsDuration *prometheus.HistogramVec
	collections        *prometheus.GaugeVec
}

var (
	sharedCatalogCollectors *catalogCollectors
	catalogCollectorsOnce   sync.Once
)

// NewCatalogMetrics creates a Prometheus-backed CatalogMetrics instance.
//
// Parameters:
//   - catalogType: Type of catalog (e.g., "memory", "badger")
//     Used as a label to distinguish metrics from different implementations.
//
// Returns a no-op implementation if metrics are not enabled.
func NewCatalogMetrics(catalogType string) CatalogMetrics {
	if !IsEnabled() {
		return noopCatalogMetrics{}
	}

	catalogCollectorsOnce.Do(func() {
		sharedCatalogCollectors = newCatalogCollectors(GetRegistry())
	})
	return sharedCatalogCollectors.forType(catalogType)
}

func newCatalogCollectors(reg prometheus.Registerer) *catalogCollectors {
	return &catalogCollectors{
		storageOpsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodocs_catalog_storage_operations_total",
				Help: "Total number of low-level catalog operations (get, put, delete, scan)",
			},
			[]string{"catalog_type", "operation", "status"},
		),
		storageOpsDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodocs_catalog_storage_operation_duration_seconds",
				Help: "Duration of low-level catalog operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
				},
			},
			[]string{"catalog_type", "operation"},
		),
		collections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittodocs_catalog_collections",
				Help: "Current number of registered collections",
			},
			[]string{"catalog_type"},
		),
	}
}

func (c *catalogCollectors) forType(catalogType string) *catalogMetrics {
	return &catalogMetrics{
		catalogType:        catalogType,
		storageOpsTotal:    c.storageOpsTotal,
		storageOpsDuration: c.storageOpsDuration,
		collections:        c.collections,
	}
}

func (m *catalogMetrics) RecordStorageOperation(operation string, duration time.Duration, err error) {
	status, _ := statusOf(err)
	m.storageOpsTotal.WithLabelValues(m.catalogType, operation, status).Inc()
	m.storageOpsDuration.WithLabelValues(m.catalogType, operation).Observe(duration.Seconds())
}

func (m *catalogMetrics) SetCollections(count int) {
	m.collections.WithLabelValues(m.catalogType).Set(float64(count))
}

// noopCatalogMetrics is a no-op implementation of CatalogMetrics with zero overhead.
type noopCatalogMetrics struct{}

func (noopCatalogMetrics) RecordStorageOperation(operation string, duration time.Duration, err error) {
}
func (noopCatalogMetrics) SetCollections(count int) {}
