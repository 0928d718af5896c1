package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.IncCatalogScans(true)
	c.IncCatalogScans(false)
	c.IncCatalogScans(true)
	c.SetLayersDiscovered(7)
	c.IncLayerLoads("roads", true)
	c.IncCacheLookups("collection", true)
	c.IncCacheLookups("collection", false)
	c.IncNormalizations("reprojected")
	c.IncStorageOperations("read", false)
	c.ObserveLoadDuration("roads", 50*time.Millisecond)
	c.ObserveStorageDuration("read", time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"successful scans", testutil.ToFloat64(c.catalogScans.WithLabelValues("success")), 2},
		{"failed scans", testutil.ToFloat64(c.catalogScans.WithLabelValues("error")), 1},
		{"layers discovered", testutil.ToFloat64(c.layersDiscovered), 7},
		{"layer loads", testutil.ToFloat64(c.layerLoads.WithLabelValues("roads", "success")), 1},
		{"cache hits", testutil.ToFloat64(c.cacheLookups.WithLabelValues("collection", "hit")), 1},
		{"cache misses", testutil.ToFloat64(c.cacheLookups.WithLabelValues("collection", "miss")), 1},
		{"normalizations", testutil.ToFloat64(c.normalizations.WithLabelValues("reprojected")), 1},
		{"storage errors", testutil.ToFloat64(c.storageOperations.WithLabelValues("read", "error")), 1},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorsDoNotShareRegistries(t *testing.T) {
	// Two collectors must not collide on registration.
	a := NewCollector("", nil)
	b := NewCollector("", nil)

	a.SetLayersDiscovered(1)
	b.SetLayersDiscovered(2)

	if testutil.ToFloat64(a.layersDiscovered) != 1 {
		t.Error("collectors share state")
	}
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(c.Middleware)
	router.HandleFunc("/api/v1/layers/{layerId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/layers/"+id, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/layers/{layerId}", "4xx"))
	if got != 3 {
		t.Errorf("requests = %v, want 3 under one route label", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())
	c.SetLayersDiscovered(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_layers_discovered 3") {
		t.Error("metrics output should contain test_layers_discovered")
	}
}

func TestStatusToString(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{304, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{100, "unknown"},
	}

	for _, tt := range tests {
		if got := statusToString(tt.code); got != tt.want {
			t.Errorf("statusToString(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
