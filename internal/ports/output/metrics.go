package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncCatalogScans increments the catalog scan counter.
	IncCatalogScans(success bool)

	// SetLayersDiscovered sets the number of layers in the last catalog scan.
	SetLayersDiscovered(count int)

	// IncLayerLoads increments the layer load counter.
	IncLayerLoads(layerID string, success bool)

	// ObserveLoadDuration records how long a layer took to load.
	ObserveLoadDuration(layerID string, duration time.Duration)

	// IncCacheLookups counts memo cache hits and misses.
	IncCacheLookups(cache string, hit bool)

	// IncNormalizations counts CRS normalization outcomes.
	IncNormalizations(outcome string)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncCatalogScans implements MetricsCollector.
func (n *NoOpMetrics) IncCatalogScans(_ bool) {}

// SetLayersDiscovered implements MetricsCollector.
func (n *NoOpMetrics) SetLayersDiscovered(_ int) {}

// IncLayerLoads implements MetricsCollector.
func (n *NoOpMetrics) IncLayerLoads(_ string, _ bool) {}

// ObserveLoadDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveLoadDuration(_ string, _ time.Duration) {}

// IncCacheLookups implements MetricsCollector.
func (n *NoOpMetrics) IncCacheLookups(_ string, _ bool) {}

// IncNormalizations implements MetricsCollector.
func (n *NoOpMetrics) IncNormalizations(_ string) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
