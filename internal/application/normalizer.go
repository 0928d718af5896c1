package application

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// CRSNormalizer reprojects collections into the global CRS (EPSG:4326).
type CRSNormalizer struct {
	registry output.ProjectionRegistry
	metrics  output.MetricsCollector
	logger   *slog.Logger
}

// NewCRSNormalizer creates a new CRS normalizer.
func NewCRSNormalizer(
	registry output.ProjectionRegistry,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *CRSNormalizer {
	return &CRSNormalizer{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// ToGlobal returns fc expressed in EPSG:4326. Empty collections, collections
// without a CRS and collections already in EPSG:4326 come back as the same
// reference. Unknown CRSs and failed reprojections also return fc unchanged,
// with a reason. The input is never mutated.
func (n *CRSNormalizer) ToGlobal(fc *domain.FeatureCollection) domain.Normalization {
	res := n.toGlobal(fc)
	n.metrics.IncNormalizations(string(res.Outcome))
	return res
}

func (n *CRSNormalizer) toGlobal(fc *domain.FeatureCollection) domain.Normalization {
	switch {
	case fc.IsEmpty():
		return unchanged(fc, "empty collection")
	case !fc.HasCRS():
		return unchanged(fc, "no CRS declared")
	case domain.IsGlobalCRS(fc.CRS):
		return unchanged(fc, "already in "+domain.GlobalCRS)
	}

	resolution := n.registry.Resolve(fc.CRS)
	if !resolution.Resolved {
		n.logger.Warn("cannot reproject, CRS unresolved", "crs", fc.CRS, "reason", resolution.Reason)
		return unchanged(fc, resolution.Reason)
	}

	proj, err := n.registry.ToWGS84(resolution.SRID)
	if err != nil {
		n.logger.Warn("cannot reproject, no projection", "crs", fc.CRS, "error", err)
		return unchanged(fc, err.Error())
	}

	out, err := reproject(fc, proj)
	if err != nil {
		n.logger.Warn("reprojection failed", "crs", fc.CRS, "error", err)
		return unchanged(fc, err.Error())
	}

	n.logger.Debug("collection reprojected", "from", fc.CRS, "to", domain.GlobalCRS, "features", out.Len())
	return domain.Normalization{
		Collection: out,
		Outcome:    domain.OutcomeReprojected,
	}
}

func unchanged(fc *domain.FeatureCollection, reason string) domain.Normalization {
	return domain.Normalization{
		Collection: fc,
		Outcome:    domain.OutcomeUnchanged,
		Reason:     reason,
	}
}

// reproject deep-copies fc with every coordinate passed through proj.
// Any non-finite output coordinate fails the whole collection.
func reproject(fc *domain.FeatureCollection, proj orb.Projection) (*domain.FeatureCollection, error) {
	var bad *orb.Point
	checked := func(p orb.Point) orb.Point {
		q := proj(p)
		if bad == nil && !finitePoint(q) {
			src := p
			bad = &src
		}
		return q
	}

	out := &domain.FeatureCollection{
		Features: make([]*geojson.Feature, len(fc.Features)),
		CRS:      domain.GlobalCRS,
	}
	for i, f := range fc.Features {
		clone := &geojson.Feature{
			ID:         f.ID,
			Type:       f.Type,
			Properties: f.Properties.Clone(),
		}
		if f.Geometry != nil {
			clone.Geometry = project.Geometry(orb.Clone(f.Geometry), checked)
		}
		out.Features[i] = clone

		if bad != nil {
			return nil, fmt.Errorf("%w: point %v has no finite image", domain.ErrReprojection, *bad)
		}
	}

	return out, nil
}

func finitePoint(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
