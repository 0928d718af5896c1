package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/layerscope/internal/domain"
)

// fileServer serves dir, optionally behind basic auth.
func fileServer(t *testing.T, dir, user, pass string) *httptest.Server {
	t.Helper()
	files := http.FileServer(http.Dir(dir))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
}

func TestHTTPStorageList(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.txt":                  "# layers\nroads.geojson\n\nrivers.geojson_part-000.gz\nnotes.txt\n",
		"roads.geojson":              `{"type":"FeatureCollection","features":[]}`,
		"rivers.geojson_part-000.gz": "gzdata",
	})
	srv := fileServer(t, dir, "", "")

	s := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL + "/"})
	if s.Location() != srv.URL {
		t.Errorf("Location() = %q, want %q", s.Location(), srv.URL)
	}

	objects, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("List() returned %d objects, want 2: %+v", len(objects), objects)
	}
	if objects[0].Key != "roads.geojson" || objects[0].Size != 42 {
		t.Errorf("objects[0] = %+v, want roads.geojson with size 42", objects[0])
	}
	if objects[1].Key != "rivers.geojson_part-000.gz" || objects[1].Size != 6 {
		t.Errorf("objects[1] = %+v, want rivers part with size 6", objects[1])
	}
	if objects[0].LastModified == 0 {
		t.Error("LastModified should come from the Last-Modified header")
	}
}

func TestHTTPStorageMissingIndex(t *testing.T) {
	srv := fileServer(t, t.TempDir(), "", "")

	objects, err := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL}).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("List() returned %d objects, want 0", len(objects))
	}
}

func TestHTTPStorageListedFileMissing(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"index.txt": "ghost.geojson\n"})
	srv := fileServer(t, dir, "", "")

	_, err := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL}).List(context.Background())
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.Operation != "stat" {
		t.Fatalf("List() error = %v, want stat StorageError", err)
	}
}

func TestHTTPStorageUnreachable(t *testing.T) {
	srv := fileServer(t, t.TempDir(), "", "")
	url := srv.URL
	srv.Close()

	_, err := NewHTTPStorage(HTTPConfig{BaseURL: url}).List(context.Background())
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("List() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestHTTPStorageGetReader(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.geojson": "content"})
	srv := fileServer(t, dir, "reader", "secret")

	s := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL, Username: "reader", Password: "secret"})
	rc, err := s.GetReader(context.Background(), "a.geojson")
	if err != nil {
		t.Fatalf("GetReader() error = %v", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "content" {
		t.Errorf("content = %q, want content", data)
	}

	if _, err := s.GetReader(context.Background(), "missing.geojson"); err == nil {
		t.Error("GetReader() should fail for a missing file")
	}

	anonymous := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL})
	if _, err := anonymous.GetReader(context.Background(), "a.geojson"); err == nil {
		t.Error("GetReader() without credentials should fail")
	}
}
