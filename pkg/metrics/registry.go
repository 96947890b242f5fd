// Package metrics provides Prometheus metrics for dittodocs components.
//
// Metrics are opt-in. Until InitRegistry is called every constructor returns
// a no-op implementation, so collections, catalogs and snapshot transfers run
// unchanged without them:
//
//	metrics.InitRegistry()
//	m := metrics.NewStoreMetrics()
//	books, err := tree.New(root, tree.WithMetrics(m))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry with the Go runtime and
// process collectors attached. Later calls do nothing.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "dittodocs"}),
		)
		registry = reg
	})
}

// GetRegistry returns the registry, or nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return registry != nil
}
