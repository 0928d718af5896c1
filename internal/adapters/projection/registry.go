// Package projection resolves CRS names and provides projections into WGS 84.
package projection

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// EPSG code ranges of the UTM families we can invert.
const (
	wgs84UTMNorthBase = 32600 // 32601-32660
	wgs84UTMSouthBase = 32700 // 32701-32760

	sirgasUTMNorthFirst = 31971 // zone 17N
	sirgasUTMNorthLast  = 31976 // zone 22N
	sirgasUTMSouthFirst = 31977 // zone 17S
	sirgasUTMSouthLast  = 31985 // zone 25S
	sirgasFirstZone     = 17
)

// Registry implements ProjectionRegistry for geographic WGS 84 and SIRGAS
// 2000, spherical Web Mercator, and the WGS 84 and SIRGAS 2000 UTM zones.
type Registry struct{}

// NewRegistry creates a new projection registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Ensure interface compliance.
var _ output.ProjectionRegistry = (*Registry)(nil)

// Resolve maps a declared CRS name to a supported SRID.
func (r *Registry) Resolve(name string) domain.CRSResolution {
	srid, err := domain.ParseSRID(name)
	if err != nil {
		return domain.Unresolved(name, err.Error())
	}
	if !r.Supports(srid) {
		return domain.Unresolved(name, fmt.Sprintf("EPSG:%d is not supported", srid))
	}
	return domain.Resolved(name, srid)
}

// Supports reports whether srid can be projected into WGS 84.
func (r *Registry) Supports(srid int) bool {
	_, err := r.ToWGS84(srid)
	return err == nil
}

// ToWGS84 returns the projection from srid into EPSG:4326.
func (r *Registry) ToWGS84(srid int) (orb.Projection, error) {
	switch srid {
	case domain.SRIDWGS84, domain.SRIDSIRGAS2000:
		// SIRGAS 2000 and WGS 84 agree to within centimetres.
		return identity, nil
	case domain.SRIDWebMercator, domain.SRIDGoogleMercator,
		domain.SRIDEsriMercator, domain.SRIDEsriMercator2:
		return project.Mercator.ToWGS84, nil
	}

	if zone, ok := utmZone(srid); ok {
		return zone.ToWGS84, nil
	}

	return nil, fmt.Errorf("EPSG:%d: %w", srid, domain.ErrUnknownCRS)
}

func identity(p orb.Point) orb.Point {
	return p
}

// utmZone maps an EPSG code to its UTM zone definition.
func utmZone(srid int) (UTMZone, bool) {
	switch {
	case srid > wgs84UTMNorthBase && srid <= wgs84UTMNorthBase+60:
		return UTMZone{Number: srid - wgs84UTMNorthBase, Ellipsoid: WGS84}, true
	case srid > wgs84UTMSouthBase && srid <= wgs84UTMSouthBase+60:
		return UTMZone{Number: srid - wgs84UTMSouthBase, South: true, Ellipsoid: WGS84}, true
	case srid >= sirgasUTMNorthFirst && srid <= sirgasUTMNorthLast:
		return UTMZone{Number: sirgasFirstZone + srid - sirgasUTMNorthFirst, Ellipsoid: GRS80}, true
	case srid >= sirgasUTMSouthFirst && srid <= sirgasUTMSouthLast:
		return UTMZone{Number: sirgasFirstZone + srid - sirgasUTMSouthFirst, South: true, Ellipsoid: GRS80}, true
	}
	return UTMZone{}, false
}
