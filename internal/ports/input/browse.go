// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/jobrunner/layerscope/internal/domain"
)

// LayerBrowser defines the primary port for browsing layers.
type LayerBrowser interface {
	// Layers returns every discovered layer, sorted by ID.
	Layers(ctx context.Context) ([]domain.LayerDescriptor, error)

	// Summary returns statistics for one layer.
	Summary(ctx context.Context, layerID string) (*domain.LayerSummary, error)

	// Map returns a sampled, WGS84 view of one layer ready for rendering.
	Map(ctx context.Context, layerID string, maxFeatures int) (*domain.MapView, error)

	// Preview returns the first rows of a layer's attribute table.
	Preview(ctx context.Context, layerID string, rows int) ([]domain.PreviewRow, error)

	// Export returns the WGS84 GeoJSON document of one layer.
	Export(ctx context.Context, layerID string) ([]byte, error)

	// Purge drops every memoized catalog and collection.
	Purge()
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy          bool              // Overall health status
	Ready            bool              // Ready to accept requests
	LayersDiscovered int               // Number of layers in the catalog
	Components       map[string]string // Component statuses
}
