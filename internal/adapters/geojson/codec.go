// Package geojson provides the GeoJSON codec for layer parts and exports.
package geojson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	orbjson "github.com/paulmach/orb/geojson"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// partDocument is the subset of a FeatureCollection document we read.
// The top-level type member is not checked.
type partDocument struct {
	Features []*orbjson.Feature `json:"features"`
	CRS      json.RawMessage    `json:"crs,omitempty"`
}

// namedCRS is the legacy GeoJSON 2008 "crs" member.
type namedCRS struct {
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// Codec implements PartDecoder and CollectionEncoder.
type Codec struct{}

// NewCodec creates a new GeoJSON codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Ensure interface compliance.
var (
	_ output.PartDecoder       = (*Codec)(nil)
	_ output.CollectionEncoder = (*Codec)(nil)
)

// DecodePart parses one uncompressed part. The whole input must be a single
// JSON object. Syntax errors, trailing data and invalid geometries wrap
// domain.ErrMalformedLayer.
func (c *Codec) DecodePart(r io.Reader) (*output.DecodedPart, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading part: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: top-level value is not an object", domain.ErrMalformedLayer)
	}

	var doc partDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedLayer, err)
	}

	features := make([]*orbjson.Feature, 0, len(doc.Features))
	for _, f := range doc.Features {
		// A literal null in the features array.
		if f == nil {
			continue
		}
		features = append(features, f)
	}

	return &output.DecodedPart{
		Collection: &domain.FeatureCollection{Features: features},
		CRSName:    crsName(doc.CRS),
	}, nil
}

// crsName extracts crs.properties.name. Anything that does not have that
// shape counts as no declaration.
func crsName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var c namedCRS
	if err := json.Unmarshal(raw, &c); err != nil {
		return ""
	}
	return c.Properties.Name
}

// Encode serializes the collection as an RFC 7946 FeatureCollection.
// The legacy crs member is not written since the output is always WGS 84.
func (c *Codec) Encode(fc *domain.FeatureCollection) ([]byte, error) {
	out := orbjson.NewFeatureCollection()
	if fc != nil {
		out.Features = append(out.Features, fc.Features...)
	}

	data, err := out.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding feature collection: %w", err)
	}
	return data, nil
}
