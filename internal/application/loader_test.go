package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"github.com/jobrunner/layerscope/internal/domain"
)

func TestLayerLoaderMergesPartsInOrder(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"roads.geojson_part-1.gz": gzipped(t, collectionDoc("", pointFeatures(5, 3))),
		"roads.geojson_part-0.gz": gzipped(t, collectionDoc("", pointFeatures(3, 0))),
	})

	fc, err := p.loader.Load(context.Background(), "roads")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if fc.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", fc.Len())
	}
	for i, f := range fc.Features {
		if got := f.Properties["i"]; got != float64(i) {
			t.Errorf("feature %d has i = %v, want %d", i, got, i)
		}
		if pt, ok := f.Geometry.(orb.Point); !ok || pt.X() != float64(i) {
			t.Errorf("feature %d geometry = %v, want point(%d %d)", i, f.Geometry, i, i)
		}
	}
	if fc.HasCRS() {
		t.Errorf("CRS = %q, want none", fc.CRS)
	}
	if p.metrics.loads[true] != 1 {
		t.Errorf("successful loads = %d, want 1", p.metrics.loads[true])
	}
}

func TestLayerLoaderCRSFirstDeclaringPartWins(t *testing.T) {
	tests := []struct {
		name    string
		crs0    string
		crs1    string
		wantCRS string
	}{
		{name: "first part silent, second declares", crs0: "", crs1: "EPSG:3857", wantCRS: "EPSG:3857"},
		{name: "both declare, first wins", crs0: "EPSG:31983", crs1: "EPSG:3857", wantCRS: "EPSG:31983"},
		{name: "both declare the same", crs0: "EPSG:3857", crs1: "EPSG:3857", wantCRS: "EPSG:3857"},
		{name: "none declare", crs0: "", crs1: "", wantCRS: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, map[string][]byte{
				"l.geojson_part-0.gz": gzipped(t, collectionDoc(tt.crs0, pointFeatures(1, 0))),
				"l.geojson_part-1.gz": gzipped(t, collectionDoc(tt.crs1, pointFeatures(1, 1))),
			})

			fc, err := p.loader.Load(context.Background(), "l")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if fc.CRS != tt.wantCRS {
				t.Errorf("CRS = %q, want %q", fc.CRS, tt.wantCRS)
			}
		})
	}
}

func TestLayerLoaderUnresolvedCRSLeftUnset(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"l.geojson": collectionDoc("EPSG:27700", pointFeatures(2, 0)),
	})

	fc, err := p.loader.Load(context.Background(), "l")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if fc.HasCRS() {
		t.Errorf("CRS = %q, want none", fc.CRS)
	}
	if fc.Len() != 2 {
		t.Errorf("Len() = %d, want 2", fc.Len())
	}
}

func TestLayerLoaderPlainAndCompressed(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"mixed.geojson":           collectionDoc("", pointFeatures(2, 0)),
		"mixed.geojson_part-0.gz": gzipped(t, collectionDoc("", pointFeatures(1, 2))),
	})

	fc, err := p.loader.Load(context.Background(), "mixed")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if fc.Len() != 3 {
		t.Errorf("Len() = %d, want 3", fc.Len())
	}
}

func TestLayerLoaderUnknownLayer(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"a.geojson": collectionDoc("", pointFeatures(1, 0)),
	})

	fc, err := p.loader.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !fc.IsEmpty() || fc.HasCRS() {
		t.Errorf("Load() = %+v, want empty collection without CRS", fc)
	}
}

func TestLayerLoaderAllPartsEmpty(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"e.geojson_part-0.gz": gzipped(t, collectionDoc("EPSG:3857", "")),
		"e.geojson_part-1.gz": gzipped(t, collectionDoc("", "")),
	})

	fc, err := p.loader.Load(context.Background(), "e")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !fc.IsEmpty() {
		t.Errorf("Len() = %d, want 0", fc.Len())
	}
	if fc.HasCRS() {
		t.Errorf("CRS = %q, want none for an empty layer", fc.CRS)
	}
}

func TestLayerLoaderMalformedPartIsFatal(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{
			name: "truncated json",
			data: func(t *testing.T) []byte {
				return gzipped(t, []byte(`{"type":"FeatureCollection","features":[`))
			},
		},
		{
			name: "not gzip",
			data: func(_ *testing.T) []byte {
				return []byte(`{"type":"FeatureCollection","features":[]}`)
			},
		},
		{
			name: "corrupt checksum",
			data: func(t *testing.T) []byte {
				data := gzipped(t, collectionDoc("", pointFeatures(1, 0)))
				data[len(data)-8] ^= 0xff
				return data
			},
		},
		{
			name: "trailing data after document",
			data: func(t *testing.T) []byte {
				return gzipped(t, []byte(`{"type":"FeatureCollection","features":[]} ]]] not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, map[string][]byte{
				"bad.geojson_part-0.gz": gzipped(t, collectionDoc("", pointFeatures(2, 0))),
				"bad.geojson_part-1.gz": tt.data(t),
			})

			fc, err := p.loader.Load(context.Background(), "bad")
			if err == nil {
				t.Fatalf("Load() = %d features, want error", fc.Len())
			}

			var loadErr *domain.LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("error = %T, want *domain.LoadError", err)
			}
			if loadErr.LayerID != "bad" || loadErr.Part != "bad.geojson_part-1.gz" {
				t.Errorf("LoadError = %+v, want layer bad part 1", loadErr)
			}
			if !errors.Is(err, domain.ErrMalformedLayer) {
				t.Errorf("error = %v, want ErrMalformedLayer", err)
			}
			if p.metrics.loads[false] != 1 {
				t.Errorf("failed loads = %d, want 1", p.metrics.loads[false])
			}
		})
	}
}

func TestLayerLoaderReadErrorIsFatal(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"a.geojson": collectionDoc("", pointFeatures(1, 0)),
	})
	p.storage.readErr = domain.ErrStorageUnavailable

	_, err := p.loader.Load(context.Background(), "a")
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("Load() error = %v, want ErrStorageUnavailable", err)
	}

	// Errors are not cached, so the layer loads once storage recovers.
	p.storage.readErr = nil
	fc, err := p.loader.Load(context.Background(), "a")
	if err != nil {
		t.Fatalf("Load() after recovery error = %v", err)
	}
	if fc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", fc.Len())
	}
}

func TestLayerLoaderIsMemoized(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"a.geojson": collectionDoc("", pointFeatures(4, 0)),
	})

	var wg sync.WaitGroup
	results := make([]*domain.FeatureCollection, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = p.loader.Load(context.Background(), "a")
		}(i)
	}
	wg.Wait()

	if n := p.storage.readCount("a.geojson"); n != 1 {
		t.Errorf("part read %d times, want 1", n)
	}
	for i, fc := range results {
		if fc != results[0] {
			t.Errorf("result %d is a different collection", i)
		}
	}

	p.loader.Purge()
	if _, err := p.loader.Load(context.Background(), "a"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n := p.storage.readCount("a.geojson"); n != 2 {
		t.Errorf("part read %d times after Purge, want 2", n)
	}
}

func TestLayerLoaderIgnoresCallerCancellation(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"a.geojson_part-0.gz": gzipped(t, collectionDoc("", pointFeatures(2, 0))),
		"a.geojson_part-1.gz": gzipped(t, collectionDoc("", pointFeatures(1, 2))),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc, err := p.loader.Load(ctx, "a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if fc.Len() != 3 {
		t.Errorf("Len() = %d, want 3", fc.Len())
	}

	// The shared result is cached for callers that are still around.
	if _, err := p.loader.Load(context.Background(), "a"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := p.storage.readCount("a.geojson_part-0.gz"); got != 1 {
		t.Errorf("part read %d times, want 1", got)
	}
}
