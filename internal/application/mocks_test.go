package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/jobrunner/layerscope/internal/adapters/geojson"
	"github.com/jobrunner/layerscope/internal/adapters/memo"
	"github.com/jobrunner/layerscope/internal/adapters/projection"
	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// mockStorage implements output.ObjectStorage over in-memory files.
type mockStorage struct {
	mu       sync.Mutex
	location string
	files    map[string][]byte
	listErr  error
	readErr  error
	lists    int
	reads    map[string]int
}

func newMockStorage(files map[string][]byte) *mockStorage {
	return &mockStorage{
		location: "mem://test",
		files:    files,
		reads:    make(map[string]int),
	}
}

func (m *mockStorage) Location() string {
	return m.location
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}

	objects := make([]output.StorageObject, 0, len(m.files))
	for key, data := range m.files {
		if !domain.IsLayerFile(key) {
			continue
		}
		objects = append(objects, output.StorageObject{Key: key, Size: int64(len(data))})
	}
	return objects, nil
}

func (m *mockStorage) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads[key]++
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockStorage) readCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[key]
}

// recordingMetrics counts the calls the services make.
type recordingMetrics struct {
	output.NoOpMetrics
	mu             sync.Mutex
	scans          map[bool]int
	loads          map[bool]int
	normalizations map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		scans:          make(map[bool]int),
		loads:          make(map[bool]int),
		normalizations: make(map[string]int),
	}
}

func (m *recordingMetrics) IncCatalogScans(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[success]++
}

func (m *recordingMetrics) IncLayerLoads(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[success]++
}

func (m *recordingMetrics) IncNormalizations(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.normalizations[outcome]++
}

// testLogger discards everything below error.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// pipeline bundles the services wired against one storage.
type pipeline struct {
	storage    *mockStorage
	metrics    *recordingMetrics
	catalog    *LayerCatalog
	loader     *LayerLoader
	normalizer *CRSNormalizer
	service    *MapService
}

// newPipeline wires the real codec and registry with LRU caches.
func newPipeline(t *testing.T, files map[string][]byte) *pipeline {
	t.Helper()

	storage := newMockStorage(files)
	metrics := newRecordingMetrics()
	logger := testLogger()
	registry := projection.NewRegistry()
	codec := geojson.NewCodec()

	catalog := NewLayerCatalog(storage, memo.NewLRU[domain.Catalog]("catalog", 4, metrics), metrics, logger)
	loader := NewLayerLoader(catalog, storage, codec, registry,
		memo.NewLRU[*domain.FeatureCollection]("collection", 16, metrics), metrics, logger)
	normalizer := NewCRSNormalizer(registry, metrics, logger)
	service := NewMapService(catalog, loader, normalizer, codec, MapConfig{Seed: DefaultSeed}, logger)

	return &pipeline{
		storage:    storage,
		metrics:    metrics,
		catalog:    catalog,
		loader:     loader,
		normalizer: normalizer,
		service:    service,
	}
}

// pointFeatures renders n point features with an "i" attribute starting at offset.
func pointFeatures(n, offset int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		id := offset + i
		parts[i] = fmt.Sprintf(
			`{"type":"Feature","geometry":{"type":"Point","coordinates":[%d,%d]},"properties":{"i":%d}}`,
			id, id, id)
	}
	return strings.Join(parts, ",")
}

// collectionDoc renders a FeatureCollection document. crs may be empty.
func collectionDoc(crs, features string) []byte {
	crsMember := ""
	if crs != "" {
		crsMember = fmt.Sprintf(`"crs":{"type":"name","properties":{"name":%q}},`, crs)
	}
	return []byte(fmt.Sprintf(`{"type":"FeatureCollection",%s"features":[%s]}`, crsMember, features))
}

// gzipped compresses data.
func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}
