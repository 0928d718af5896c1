// Package application contains the application services.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// LayerCatalog discovers layers at the storage root.
type LayerCatalog struct {
	storage output.ObjectStorage
	cache   output.Memo[domain.Catalog]
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// NewLayerCatalog creates a new layer catalog.
func NewLayerCatalog(
	storage output.ObjectStorage,
	cache output.Memo[domain.Catalog],
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *LayerCatalog {
	return &LayerCatalog{
		storage: storage,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Discover lists the storage root and groups layer files into layers.
// Results are memoized per storage location. A missing root yields an
// empty catalog.
func (c *LayerCatalog) Discover(ctx context.Context) (domain.Catalog, error) {
	location := c.storage.Location()
	detached := context.WithoutCancel(ctx)
	return c.cache.GetOrLoad(location, func() (domain.Catalog, error) {
		return c.scan(detached, location)
	})
}

// Purge forgets the memoized catalog.
func (c *LayerCatalog) Purge() {
	c.cache.Purge()
}

func (c *LayerCatalog) scan(ctx context.Context, location string) (domain.Catalog, error) {
	c.logger.Debug("scanning layer root", "location", location)

	start := time.Now()
	objects, err := c.storage.List(ctx)
	c.metrics.ObserveStorageDuration("list", time.Since(start))
	c.metrics.IncStorageOperations("list", err == nil)
	if err != nil {
		c.metrics.IncCatalogScans(false)
		c.logger.Error("failed to list layer root", "location", location, "error", err)
		return nil, err
	}

	files := make([]domain.PartFile, len(objects))
	for i, obj := range objects {
		files[i] = domain.PartFile{Key: obj.Key, Size: obj.Size}
	}

	catalog := domain.BuildCatalog(files)

	c.metrics.IncCatalogScans(true)
	c.metrics.SetLayersDiscovered(len(catalog))
	c.logger.Info("layer catalog built",
		"location", location,
		"files", len(files),
		"layers", len(catalog),
	)

	return catalog, nil
}
