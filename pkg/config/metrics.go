package config

import (
	"github.com/marmos91/dittodocs/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Store, Catalog and Snapshot are never nil; they are no-ops when disabled.
	Store    metrics.StoreMetrics
	Catalog  metrics.CatalogMetrics
	Snapshot metrics.SnapshotMetrics
}

// InitializeMetrics creates all metrics components based on configuration.
//
// If metrics are enabled the global Prometheus registry is initialized and an
// HTTP server is created (not started). Otherwise every collector is a no-op.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Store:    metrics.NewNoopStoreMetrics(),
			Catalog:  metrics.NewCatalogMetrics(cfg.Catalog.Type),
			Snapshot: metrics.NewSnapshotMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:   metrics.NewServer(cfg.Metrics.Port),
		Store:    metrics.NewStoreMetrics(),
		Catalog:  metrics.NewCatalogMetrics(cfg.Catalog.Type),
		Snapshot: metrics.NewSnapshotMetrics(),
	}
}
