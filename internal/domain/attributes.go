package domain

import (
	"fmt"
	"math"
	"sort"
)

// AttributeType is the JSON type observed for an attribute across features.
type AttributeType string

// Attribute types. Mixed means more than one non-null type was seen.
const (
	AttrString  AttributeType = "string"
	AttrNumber  AttributeType = "number"
	AttrBoolean AttributeType = "boolean"
	AttrObject  AttributeType = "object"
	AttrArray   AttributeType = "array"
	AttrNull    AttributeType = "null"
	AttrMixed   AttributeType = "mixed"
)

// AttributeStats describes one attribute column of a layer.
type AttributeStats struct {
	Name    string
	Type    AttributeType
	NonNull int           // Features with a non-null value
	Unique  int           // Distinct non-null values
	Numeric *NumericStats // Set for number attributes only
}

// NumericStats is the descriptive summary of a numeric attribute.
// Std is the sample standard deviation and is NaN for a single value.
// Quartiles use linear interpolation between closest ranks.
type NumericStats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// AttributeStats describes every attribute in order of first appearance.
// A feature without the key counts as a null value.
func (fc *FeatureCollection) AttributeStats() []AttributeStats {
	names := fc.AttributeNames()
	stats := make([]AttributeStats, 0, len(names))

	for _, name := range names {
		var (
			kind    AttributeType
			nonNull int
			numbers []float64
			seen    = make(map[string]struct{})
		)

		for _, f := range fc.Features {
			v, ok := f.Properties[name]
			if !ok || v == nil {
				continue
			}
			nonNull++
			seen[fmt.Sprintf("%T:%v", v, v)] = struct{}{}

			t := attributeTypeOf(v)
			switch {
			case kind == "":
				kind = t
			case kind != t:
				kind = AttrMixed
			}
			if n, ok := v.(float64); ok {
				numbers = append(numbers, n)
			}
		}

		if kind == "" {
			kind = AttrNull
		}

		s := AttributeStats{
			Name:    name,
			Type:    kind,
			NonNull: nonNull,
			Unique:  len(seen),
		}
		if kind == AttrNumber {
			s.Numeric = describe(numbers)
		}
		stats = append(stats, s)
	}

	return stats
}

func attributeTypeOf(v interface{}) AttributeType {
	switch v.(type) {
	case string:
		return AttrString
	case float64, float32, int, int64:
		return AttrNumber
	case bool:
		return AttrBoolean
	case map[string]interface{}:
		return AttrObject
	case []interface{}:
		return AttrArray
	default:
		return AttrMixed
	}
}

func describe(values []float64) *NumericStats {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	std := math.NaN()
	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		std = math.Sqrt(sq / float64(len(sorted)-1))
	}

	return &NumericStats{
		Count: len(sorted),
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		P25:   quantile(sorted, 0.25),
		P50:   quantile(sorted, 0.5),
		P75:   quantile(sorted, 0.75),
		Max:   sorted[len(sorted)-1],
	}
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
