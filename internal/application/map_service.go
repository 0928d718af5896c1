package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/input"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// Map and preview defaults.
const (
	DefaultMaxFeatures    = 2000
	DefaultSampleSize     = 500
	DefaultSeed           = 42
	DefaultPreviewRows    = 10
	DefaultMaxPreviewRows = 100
)

// MapConfig holds the rendering budget settings.
type MapConfig struct {
	MaxFeatures    int    // Upper bound for any feature budget
	DefaultSample  int    // Budget used when the caller gives none
	Seed           uint64 // Seed of the sampling source
	PreviewRows    int    // Rows used when the caller gives none
	MaxPreviewRows int
}

// withDefaults fills zero fields.
func (c MapConfig) withDefaults() MapConfig {
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = DefaultMaxFeatures
	}
	if c.DefaultSample <= 0 {
		c.DefaultSample = DefaultSampleSize
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = DefaultPreviewRows
	}
	if c.MaxPreviewRows <= 0 {
		c.MaxPreviewRows = DefaultMaxPreviewRows
	}
	return c
}

// MapService runs the browse pipeline for one layer per request.
type MapService struct {
	catalog    *LayerCatalog
	loader     *LayerLoader
	normalizer *CRSNormalizer
	encoder    output.CollectionEncoder
	config     MapConfig
	logger     *slog.Logger
}

// NewMapService creates a new map service.
func NewMapService(
	catalog *LayerCatalog,
	loader *LayerLoader,
	normalizer *CRSNormalizer,
	encoder output.CollectionEncoder,
	config MapConfig,
	logger *slog.Logger,
) *MapService {
	return &MapService{
		catalog:    catalog,
		loader:     loader,
		normalizer: normalizer,
		encoder:    encoder,
		config:     config.withDefaults(),
		logger:     logger,
	}
}

// Ensure interface compliance.
var _ input.LayerBrowser = (*MapService)(nil)

// Layers returns every discovered layer, sorted by ID.
func (s *MapService) Layers(ctx context.Context) ([]domain.LayerDescriptor, error) {
	catalog, err := s.catalog.Discover(ctx)
	if err != nil {
		return nil, err
	}

	layers := make([]domain.LayerDescriptor, 0, len(catalog))
	for _, id := range catalog.IDs() {
		layers = append(layers, catalog[id])
	}
	return layers, nil
}

// Summary returns statistics for one layer. Bounds are in the layer's
// original CRS.
func (s *MapService) Summary(ctx context.Context, layerID string) (*domain.LayerSummary, error) {
	desc, fc, err := s.load(ctx, layerID)
	if err != nil {
		return nil, err
	}

	summary := &domain.LayerSummary{
		Layer:          desc,
		FeatureCount:   fc.Len(),
		GeometryCounts: fc.GeometryCounts(),
		CRS:            fc.CRS,
		Attributes:     fc.AttributeStats(),
	}
	if b, ok := fc.Bounds(); ok {
		summary.Bounds = &b
	}
	return summary, nil
}

// Map returns a sampled WGS 84 view of the layer's non-empty geometries.
// maxFeatures <= 0 selects the configured default; any budget is clamped
// to [1, min(configured maximum, available features)].
func (s *MapService) Map(ctx context.Context, layerID string, maxFeatures int) (*domain.MapView, error) {
	_, fc, err := s.load(ctx, layerID)
	if err != nil {
		return nil, err
	}

	norm := s.normalizer.ToGlobal(fc.NonEmpty())
	view := &domain.MapView{
		LayerID:       layerID,
		Collection:    norm.Collection,
		Total:         norm.Collection.Len(),
		Normalization: norm.Outcome,
		Reason:        norm.Reason,
	}
	if view.Total == 0 {
		return view, nil
	}

	budget := s.budget(maxFeatures, view.Total)
	sampled := Sample(norm.Collection.Features, budget, NewSeededSource(s.config.Seed))

	view.MaxFeatures = budget
	view.Sampled = len(sampled) < view.Total
	view.Collection = &domain.FeatureCollection{
		Features: sampled,
		CRS:      norm.Collection.CRS,
	}

	if b, ok := view.Collection.Bounds(); ok && b.IsFinite() {
		vp := domain.ComputeViewport(b)
		view.Viewport = &vp
	}

	s.logger.Debug("map view built",
		"layer_id", layerID,
		"total", view.Total,
		"shown", len(sampled),
		"normalization", norm.Outcome,
	)
	return view, nil
}

// budget resolves the effective feature budget for n available features.
func (s *MapService) budget(requested, n int) int {
	if requested <= 0 {
		requested = s.config.DefaultSample
	}
	upper := min(s.config.MaxFeatures, n)
	return max(1, min(requested, upper))
}

// Preview returns the first rows of the layer in load order.
// rows <= 0 selects the configured default.
func (s *MapService) Preview(ctx context.Context, layerID string, rows int) ([]domain.PreviewRow, error) {
	_, fc, err := s.load(ctx, layerID)
	if err != nil {
		return nil, err
	}

	if rows <= 0 {
		rows = s.config.PreviewRows
	}
	rows = min(rows, s.config.MaxPreviewRows, fc.Len())

	preview := make([]domain.PreviewRow, rows)
	for i := 0; i < rows; i++ {
		f := fc.Features[i]
		props := make(map[string]interface{}, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		preview[i] = domain.PreviewRow{
			Index:      i,
			Geometry:   domain.KindOf(f.Geometry),
			Properties: props,
		}
	}
	return preview, nil
}

// Export returns the layer's non-empty features, normalized to WGS 84 when
// possible, as a GeoJSON FeatureCollection document.
func (s *MapService) Export(ctx context.Context, layerID string) ([]byte, error) {
	_, fc, err := s.load(ctx, layerID)
	if err != nil {
		return nil, err
	}

	norm := s.normalizer.ToGlobal(fc.NonEmpty())
	if !norm.Reprojected() && norm.Collection.HasCRS() && !domain.IsGlobalCRS(norm.Collection.CRS) {
		s.logger.Warn("exporting layer in its original CRS",
			"layer_id", layerID,
			"crs", norm.Collection.CRS,
			"reason", norm.Reason,
		)
	}

	data, err := s.encoder.Encode(norm.Collection)
	if err != nil {
		return nil, fmt.Errorf("exporting layer %s: %w", layerID, err)
	}
	return data, nil
}

// Purge drops the memoized catalog and every loaded collection.
func (s *MapService) Purge() {
	s.catalog.Purge()
	s.loader.Purge()
	s.logger.Info("layer caches purged")
}

// load resolves a layer ID against the catalog and loads its collection.
func (s *MapService) load(ctx context.Context, layerID string) (domain.LayerDescriptor, *domain.FeatureCollection, error) {
	catalog, err := s.catalog.Discover(ctx)
	if err != nil {
		return domain.LayerDescriptor{}, nil, err
	}

	desc, ok := catalog.Lookup(layerID)
	if !ok {
		return domain.LayerDescriptor{}, nil, fmt.Errorf("%s: %w", layerID, domain.ErrLayerNotFound)
	}

	fc, err := s.loader.Load(ctx, layerID)
	if err != nil {
		return desc, nil, err
	}
	return desc, fc, nil
}
