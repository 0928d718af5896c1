package output

import (
	"io"

	"github.com/paulmach/orb"

	"github.com/jobrunner/layerscope/internal/domain"
)

// DecodedPart is the content of one parsed layer part.
type DecodedPart struct {
	Collection *domain.FeatureCollection // Features in on-disk order
	CRSName    string                    // crs.properties.name, if declared
}

// PartDecoder defines the secondary port for parsing layer part files.
type PartDecoder interface {
	// DecodePart parses an uncompressed GeoJSON FeatureCollection document.
	DecodePart(r io.Reader) (*DecodedPart, error)
}

// CollectionEncoder defines the secondary port for GeoJSON export.
type CollectionEncoder interface {
	// Encode serializes a collection as a GeoJSON FeatureCollection document.
	Encode(fc *domain.FeatureCollection) ([]byte, error)
}

// ProjectionRegistry defines the secondary port for CRS lookup.
type ProjectionRegistry interface {
	// Resolve maps a declared CRS name to a supported SRID.
	Resolve(name string) domain.CRSResolution

	// ToWGS84 returns the projection from srid into EPSG:4326.
	ToWGS84(srid int) (orb.Projection, error)
}
