package application

import (
	"context"

	"github.com/jobrunner/layerscope/internal/ports/input"
)

// HealthService provides health check functionality.
type HealthService struct {
	catalog *LayerCatalog
}

// NewHealthService creates a new health service.
func NewHealthService(catalog *LayerCatalog) *HealthService {
	return &HealthService{
		catalog: catalog,
	}
}

// Ensure interface compliance.
var _ input.HealthChecker = (*HealthService)(nil)

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true // Basic health check
}

// IsReady returns true once the layer root can be listed.
// An empty or missing root still counts as ready.
func (s *HealthService) IsReady(ctx context.Context) bool {
	_, err := s.catalog.Discover(ctx)
	return err == nil
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	catalog, err := s.catalog.Discover(ctx)

	components := map[string]string{
		"storage": "ok",
	}
	if err != nil {
		components["storage"] = err.Error()
	}

	return input.HealthDetails{
		Healthy:          s.IsHealthy(ctx),
		Ready:            err == nil,
		LayersDiscovered: len(catalog),
		Components:       components,
	}
}
