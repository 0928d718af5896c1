package domain

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection is the merged, in-memory dataset of one layer.
// Features keep part order followed by on-disk order and are never re-sorted.
type FeatureCollection struct {
	Features []*geojson.Feature
	CRS      string // Declared CRS name; empty means no known projection
}

// EmptyCollection returns a collection with no features and no CRS.
func EmptyCollection() *FeatureCollection {
	return &FeatureCollection{Features: []*geojson.Feature{}}
}

// Len returns the number of features.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// IsEmpty returns true if the collection holds no features.
func (fc *FeatureCollection) IsEmpty() bool {
	return fc.Len() == 0
}

// HasCRS returns true if a CRS is declared.
func (fc *FeatureCollection) HasCRS() bool {
	return fc != nil && fc.CRS != ""
}

// NonEmpty returns a collection holding only the features whose geometry is
// present and non-empty. The feature pointers are shared with fc.
func (fc *FeatureCollection) NonEmpty() *FeatureCollection {
	out := &FeatureCollection{CRS: fc.CRS, Features: make([]*geojson.Feature, 0, fc.Len())}
	for _, f := range fc.Features {
		if KindOf(f.Geometry) != KindEmpty {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// GeometryCounts counts non-empty geometries by GeoJSON type tag.
func (fc *FeatureCollection) GeometryCounts() map[GeometryKind]int {
	counts := make(map[GeometryKind]int)
	for _, f := range fc.Features {
		if k := KindOf(f.Geometry); k != KindEmpty {
			counts[k]++
		}
	}
	return counts
}

// AttributeNames returns the attribute keys in order of first appearance.
func (fc *FeatureCollection) AttributeNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, f := range fc.Features {
		for _, key := range sortedKeys(f.Properties) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, key)
		}
	}
	return names
}

// Bounds returns the bounding box of all non-empty geometries.
// The second return value is false when no such geometry exists.
func (fc *FeatureCollection) Bounds() (BoundingBox, bool) {
	var (
		bound orb.Bound
		found bool
	)
	for _, f := range fc.Features {
		if KindOf(f.Geometry) == KindEmpty {
			continue
		}
		b := f.Geometry.Bound()
		if !found {
			bound = b
			found = true
			continue
		}
		bound = bound.Union(b)
	}
	if !found {
		return BoundingBox{}, false
	}
	return BoundingBox{
		MinX: bound.Min.X(),
		MinY: bound.Min.Y(),
		MaxX: bound.Max.X(),
		MaxY: bound.Max.Y(),
	}, true
}

// GeometryKind is the closed set of geometry variants, plus Empty.
type GeometryKind string

// Geometry kinds, named after their GeoJSON type tags.
const (
	KindEmpty              GeometryKind = "Empty"
	KindPoint              GeometryKind = "Point"
	KindLineString         GeometryKind = "LineString"
	KindPolygon            GeometryKind = "Polygon"
	KindMultiPoint         GeometryKind = "MultiPoint"
	KindMultiLineString    GeometryKind = "MultiLineString"
	KindMultiPolygon       GeometryKind = "MultiPolygon"
	KindGeometryCollection GeometryKind = "GeometryCollection"
)

// KindOf classifies a geometry. Absent geometries and geometries without
// coordinates are KindEmpty.
func KindOf(g orb.Geometry) GeometryKind {
	switch g := g.(type) {
	case nil:
		return KindEmpty
	case orb.Point:
		return KindPoint
	case orb.LineString:
		if len(g) == 0 {
			return KindEmpty
		}
		return KindLineString
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) == 0 {
			return KindEmpty
		}
		return KindPolygon
	case orb.MultiPoint:
		if len(g) == 0 {
			return KindEmpty
		}
		return KindMultiPoint
	case orb.MultiLineString:
		if len(g) == 0 {
			return KindEmpty
		}
		return KindMultiLineString
	case orb.MultiPolygon:
		if len(g) == 0 {
			return KindEmpty
		}
		return KindMultiPolygon
	case orb.Collection:
		for _, child := range g {
			if KindOf(child) != KindEmpty {
				return KindGeometryCollection
			}
		}
		return KindEmpty
	default:
		// orb.Ring and orb.Bound never come out of a GeoJSON decoder.
		return KindEmpty
	}
}

// BoundingBox is an axis-aligned extent in the collection's CRS units.
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Width returns the horizontal extent.
func (b BoundingBox) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns the vertical extent.
func (b BoundingBox) Height() float64 {
	return b.MaxY - b.MinY
}

// IsFinite returns true if every edge is a finite number.
func (b BoundingBox) IsFinite() bool {
	for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
