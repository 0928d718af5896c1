package application

import (
	"context"
	"testing"

	"github.com/jobrunner/layerscope/internal/domain"
)

func TestHealthServiceIsHealthy(t *testing.T) {
	p := newPipeline(t, map[string][]byte{})
	service := NewHealthService(p.catalog)

	if !service.IsHealthy(context.Background()) {
		t.Error("IsHealthy should return true")
	}
}

func TestHealthServiceIsReady(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string][]byte
		listErr error
		want    bool
	}{
		{
			name:  "empty root is ready",
			files: map[string][]byte{},
			want:  true,
		},
		{
			name:  "root with layers is ready",
			files: map[string][]byte{"a.geojson": []byte("{}")},
			want:  true,
		},
		{
			name:    "unreachable storage is not ready",
			listErr: domain.ErrStorageUnavailable,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, tt.files)
			p.storage.listErr = tt.listErr
			service := NewHealthService(p.catalog)

			if got := service.IsReady(context.Background()); got != tt.want {
				t.Errorf("IsReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthServiceGetHealthDetails(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"a.geojson":           []byte("{}"),
		"b.geojson_part-0.gz": []byte("x"),
	})
	service := NewHealthService(p.catalog)

	details := service.GetHealthDetails(context.Background())

	if !details.Healthy || !details.Ready {
		t.Errorf("details = %+v, want healthy and ready", details)
	}
	if details.LayersDiscovered != 2 {
		t.Errorf("LayersDiscovered = %d, want 2", details.LayersDiscovered)
	}
	if details.Components["storage"] != "ok" {
		t.Errorf("storage component = %q, want ok", details.Components["storage"])
	}
}

func TestHealthServiceGetHealthDetailsStorageDown(t *testing.T) {
	p := newPipeline(t, nil)
	p.storage.listErr = domain.ErrStorageUnavailable
	service := NewHealthService(p.catalog)

	details := service.GetHealthDetails(context.Background())

	if details.Ready {
		t.Error("Ready = true, want false")
	}
	if details.Components["storage"] == "ok" {
		t.Error("storage component should report the failure")
	}
}
