package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known SRIDs.
const (
	SRIDWGS84          = 4326   // WGS 84, the global CRS every layer is normalized to
	SRIDSIRGAS2000     = 4674   // SIRGAS 2000 geographic
	SRIDWebMercator    = 3857   // Web Mercator
	SRIDGoogleMercator = 900913 // Legacy Web Mercator code
	SRIDEsriMercator   = 102100 // ESRI Web Mercator
	SRIDEsriMercator2  = 102113 // ESRI Web Mercator (auxiliary sphere)
)

// GlobalCRS is the CRS name every rendered collection is expressed in.
const GlobalCRS = "EPSG:4326"

// CRSResolution is the outcome of resolving a declared CRS name:
// either Resolved to an SRID or Unresolved with a reason.
type CRSResolution struct {
	Name     string // Name as declared in the source file
	SRID     int    // Resolved EPSG code; zero when unresolved
	Resolved bool
	Reason   string // Why resolution failed; empty when resolved
}

// Resolved returns a successful resolution.
func Resolved(name string, srid int) CRSResolution {
	return CRSResolution{Name: name, SRID: srid, Resolved: true}
}

// Unresolved returns a failed resolution.
func Unresolved(name, reason string) CRSResolution {
	return CRSResolution{Name: name, Reason: reason}
}

// String returns a short description for logs.
func (r CRSResolution) String() string {
	if r.Resolved {
		return fmt.Sprintf("resolved(%s -> EPSG:%d)", r.Name, r.SRID)
	}
	return fmt.Sprintf("unresolved(%s: %s)", r.Name, r.Reason)
}

// ParseSRID extracts an EPSG code from the usual spellings of a CRS name:
// "EPSG:3857", "urn:ogc:def:crs:EPSG::3857", "urn:ogc:def:crs:EPSG:6.6:3857",
// "http://www.opengis.net/def/crs/EPSG/0/3857" and the OGC CRS84 aliases,
// which map to 4326 since both are longitude/latitude on WGS 84.
func ParseSRID(name string) (int, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return 0, fmt.Errorf("empty CRS name: %w", ErrUnknownCRS)
	}

	upper := strings.ToUpper(n)
	if strings.HasSuffix(upper, "CRS84") {
		return SRIDWGS84, nil
	}

	var code string
	switch {
	case strings.HasPrefix(upper, "EPSG:"):
		code = n[len("EPSG:"):]
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		rest := n[len("URN:OGC:DEF:CRS:EPSG:"):]
		// Optional version between the colons: "EPSG::3857" or "EPSG:6.6:3857".
		if idx := strings.LastIndex(rest, ":"); idx >= 0 {
			rest = rest[idx+1:]
		}
		code = rest
	case strings.Contains(upper, "/DEF/CRS/EPSG/"):
		code = n[strings.LastIndex(n, "/")+1:]
	default:
		return 0, fmt.Errorf("unrecognised CRS name %q: %w", name, ErrUnknownCRS)
	}

	srid, err := strconv.Atoi(code)
	if err != nil || srid <= 0 {
		return 0, fmt.Errorf("invalid EPSG code in %q: %w", name, ErrUnknownCRS)
	}
	return srid, nil
}

// IsGlobalCRS returns true if name denotes the global CRS itself.
func IsGlobalCRS(name string) bool {
	srid, err := ParseSRID(name)
	return err == nil && srid == SRIDWGS84
}
