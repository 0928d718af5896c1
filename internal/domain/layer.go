// Package domain contains the core business entities and value objects.
package domain

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// File naming schemes recognised as layer parts.
const (
	PlainLayerSuffix = ".geojson"
	PartMarker       = ".geojson_part-"
	CompressedSuffix = ".gz"
)

// LayerDescriptor identifies one logical dataset made of one or more parts.
type LayerDescriptor struct {
	ID          string   // Shared file-name stem of all parts
	Parts       []string // Part keys, sorted lexicographically
	DisplayName string   // Human-facing label derived from ID
	TotalBytes  int64    // Sum of part sizes on disk
}

// PartCount returns the number of parts of the layer.
func (d *LayerDescriptor) PartCount() int {
	return len(d.Parts)
}

// Catalog maps layer IDs to their descriptors.
type Catalog map[string]LayerDescriptor

// IDs returns the layer IDs in ascending order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the descriptor for id.
func (c Catalog) Lookup(id string) (LayerDescriptor, bool) {
	d, ok := c[id]
	return d, ok
}

// PartFile is a candidate layer file as seen by a storage listing.
type PartFile struct {
	Key  string
	Size int64
}

// LayerStem returns the layer ID a file name belongs to.
// The second return value is false if the name matches neither naming scheme.
func LayerStem(name string) (string, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))

	if idx := strings.Index(base, PartMarker); idx > 0 && strings.HasSuffix(base, CompressedSuffix) {
		return base[:idx], true
	}

	if strings.HasSuffix(base, PlainLayerSuffix) {
		stem := strings.TrimSuffix(base, PlainLayerSuffix)
		if stem == "" {
			return "", false
		}
		return stem, true
	}

	return "", false
}

// IsLayerFile reports whether name matches one of the layer naming schemes.
func IsLayerFile(name string) bool {
	_, ok := LayerStem(name)
	return ok
}

// IsCompressedPart reports whether a part must be decompressed before parsing.
func IsCompressedPart(key string) bool {
	return strings.HasSuffix(key, CompressedSuffix)
}

// BuildCatalog groups part files by stem into layer descriptors.
// Files that match no naming scheme are ignored.
func BuildCatalog(files []PartFile) Catalog {
	groups := make(map[string][]PartFile)
	for _, f := range files {
		stem, ok := LayerStem(f.Key)
		if !ok {
			continue
		}
		groups[stem] = append(groups[stem], f)
	}

	catalog := make(Catalog, len(groups))
	for stem, parts := range groups {
		sort.Slice(parts, func(i, j int) bool { return parts[i].Key < parts[j].Key })

		keys := make([]string, len(parts))
		var size int64
		for i, p := range parts {
			keys[i] = p.Key
			size += p.Size
		}

		catalog[stem] = LayerDescriptor{
			ID:          stem,
			Parts:       keys,
			DisplayName: DisplayName(stem),
			TotalBytes:  size,
		}
	}
	return catalog
}

// DisplayName turns a layer ID into a label: "__" becomes an arrow,
// "_" becomes a space, and the result is trimmed and title-cased.
func DisplayName(id string) string {
	s := strings.ReplaceAll(id, "__", " → ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.TrimSpace(s)
	// Casers carry state, so one is built per call.
	return cases.Title(language.Und).String(s)
}

// HumanSize formats a byte count with binary units, e.g. "1,536.00 KB".
func HumanSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(n)
	idx := 0
	for value >= 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	return groupThousands(fmt.Sprintf("%.2f", value)) + " " + units[idx]
}

// groupThousands inserts commas into the integer part of a decimal string.
func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + "." + frac
}
