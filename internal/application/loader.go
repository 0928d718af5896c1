package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// LayerLoader reads every part of a layer and merges them into one collection.
type LayerLoader struct {
	catalog  *LayerCatalog
	storage  output.ObjectStorage
	decoder  output.PartDecoder
	registry output.ProjectionRegistry
	cache    output.Memo[*domain.FeatureCollection]
	metrics  output.MetricsCollector
	logger   *slog.Logger
}

// NewLayerLoader creates a new layer loader.
func NewLayerLoader(
	catalog *LayerCatalog,
	storage output.ObjectStorage,
	decoder output.PartDecoder,
	registry output.ProjectionRegistry,
	cache output.Memo[*domain.FeatureCollection],
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *LayerLoader {
	return &LayerLoader{
		catalog:  catalog,
		storage:  storage,
		decoder:  decoder,
		registry: registry,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Load returns the merged collection of a layer. Features keep part order
// and on-disk order. The CRS is taken from the first part that declares
// one. An unknown layer yields an empty collection. Malformed content in
// any part fails the whole layer with a *domain.LoadError.
//
// The returned collection is shared with the cache and must not be mutated.
func (l *LayerLoader) Load(ctx context.Context, layerID string) (*domain.FeatureCollection, error) {
	// Callers share the load, so one caller going away must not fail it.
	detached := context.WithoutCancel(ctx)
	return l.cache.GetOrLoad(layerID, func() (*domain.FeatureCollection, error) {
		return l.load(detached, layerID)
	})
}

// Purge forgets every memoized collection.
func (l *LayerLoader) Purge() {
	l.cache.Purge()
}

func (l *LayerLoader) load(ctx context.Context, layerID string) (*domain.FeatureCollection, error) {
	catalog, err := l.catalog.Discover(ctx)
	if err != nil {
		return nil, err
	}

	desc, ok := catalog.Lookup(layerID)
	if !ok {
		l.logger.Debug("layer not in catalog", "layer_id", layerID)
		return domain.EmptyCollection(), nil
	}

	start := time.Now()
	fc, err := l.merge(ctx, desc)
	l.metrics.ObserveLoadDuration(layerID, time.Since(start))
	l.metrics.IncLayerLoads(layerID, err == nil)
	if err != nil {
		l.logger.Error("failed to load layer", "layer_id", layerID, "error", err)
		return nil, err
	}

	l.logger.Info("layer loaded",
		"layer_id", layerID,
		"parts", desc.PartCount(),
		"features", fc.Len(),
		"crs", fc.CRS,
		"duration", time.Since(start),
	)
	return fc, nil
}

func (l *LayerLoader) merge(ctx context.Context, desc domain.LayerDescriptor) (*domain.FeatureCollection, error) {
	merged := domain.EmptyCollection()

	var declared string
	for _, part := range desc.Parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decoded, err := l.readPart(ctx, part)
		if err != nil {
			return nil, &domain.LoadError{LayerID: desc.ID, Part: part, Err: err}
		}

		merged.Features = append(merged.Features, decoded.Collection.Features...)

		if decoded.CRSName == "" {
			continue
		}
		if declared == "" {
			declared = decoded.CRSName
			continue
		}
		if decoded.CRSName != declared {
			l.logger.Warn("part declares a different CRS, keeping the first",
				"layer_id", desc.ID,
				"part", part,
				"crs", decoded.CRSName,
				"kept_crs", declared,
			)
		}
	}

	if merged.IsEmpty() {
		return domain.EmptyCollection(), nil
	}

	if declared != "" {
		res := l.registry.Resolve(declared)
		if res.Resolved {
			merged.CRS = declared
		} else {
			l.logger.Warn("unresolved CRS, layer will not be reprojected",
				"layer_id", desc.ID,
				"crs", declared,
				"reason", res.Reason,
			)
		}
	}

	return merged, nil
}

// readPart opens, decompresses and decodes a single part.
func (l *LayerLoader) readPart(ctx context.Context, key string) (*output.DecodedPart, error) {
	start := time.Now()
	rc, err := l.storage.GetReader(ctx, key)
	l.metrics.ObserveStorageDuration("read", time.Since(start))
	l.metrics.IncStorageOperations("read", err == nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	if !domain.IsCompressedPart(key) {
		return l.decoder.DecodePart(rc)
	}

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", domain.ErrMalformedLayer, err)
	}
	defer func() { _ = gz.Close() }()

	// The checksum and size trailer are only verified at EOF.
	data, err := io.ReadAll(gz)
	if err != nil {
		if isCorruptStream(err) {
			return nil, fmt.Errorf("%w: gzip: %v", domain.ErrMalformedLayer, err)
		}
		return nil, err
	}

	return l.decoder.DecodePart(bytes.NewReader(data))
}

// isCorruptStream reports whether err comes from the compressed data
// itself rather than from the underlying reader.
func isCorruptStream(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, gzip.ErrChecksum) ||
		errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &corrupt)
}
