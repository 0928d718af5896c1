package domain

// NormalizeOutcome tells whether a collection was reprojected.
type NormalizeOutcome string

// Normalization outcomes.
const (
	OutcomeReprojected NormalizeOutcome = "reprojected"
	OutcomeUnchanged   NormalizeOutcome = "unchanged"
)

// Normalization is the result of bringing a collection into the global CRS.
type Normalization struct {
	Collection *FeatureCollection
	Outcome    NormalizeOutcome
	Reason     string // Why the collection was left unchanged
}

// Reprojected reports whether the collection was transformed.
func (n Normalization) Reprojected() bool {
	return n.Outcome == OutcomeReprojected
}

// LayerSummary holds the statistics shown for a selected layer.
type LayerSummary struct {
	Layer          LayerDescriptor
	FeatureCount   int
	GeometryCounts map[GeometryKind]int
	Bounds         *BoundingBox // In the layer's original CRS; nil without geometries
	CRS            string
	Attributes     []AttributeStats // In order of first appearance
}

// MapView is a render-ready slice of a layer.
type MapView struct {
	LayerID       string
	Collection    *FeatureCollection // Features to draw, in EPSG:4326 when reprojection succeeded
	Total         int                // Non-empty features available before sampling
	MaxFeatures   int                // Effective feature budget
	Sampled       bool               // True when Collection is a subset
	Viewport      *Viewport          // Nil when there is nothing to draw
	Normalization NormalizeOutcome
	Reason        string
}

// HasGeometry returns true if there is anything to draw.
func (v *MapView) HasGeometry() bool {
	return v.Collection.Len() > 0
}

// PreviewRow is one feature shown in a tabular layer preview.
type PreviewRow struct {
	Index      int // Position in the loaded collection
	Geometry   GeometryKind
	Properties map[string]interface{}
}

// ExportMediaType is the media type of exported layers.
const ExportMediaType = "application/geo+json"

// ExportFileName returns the download file name for a layer export.
func ExportFileName(layerID string) string {
	return layerID + "_wgs84.geojson"
}
