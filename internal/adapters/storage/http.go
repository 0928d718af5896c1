package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// HTTPStorage implements ObjectStorage for layer files served over HTTP(S).
// The server must publish an index file listing one file name per line.
type HTTPStorage struct {
	client    *http.Client
	baseURL   string
	indexFile string
	username  string
	password  string
}

// HTTPConfig holds HTTP storage configuration.
type HTTPConfig struct {
	BaseURL   string
	IndexFile string // default: index.txt
	Timeout   time.Duration
	Username  string
	Password  string
}

// NewHTTPStorage creates a new HTTP storage adapter.
func NewHTTPStorage(cfg HTTPConfig) *HTTPStorage {
	if cfg.IndexFile == "" {
		cfg.IndexFile = "index.txt"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	return &HTTPStorage{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		indexFile: cfg.IndexFile,
		username:  cfg.Username,
		password:  cfg.Password,
	}
}

// Location returns the base URL.
func (s *HTTPStorage) Location() string {
	return s.baseURL
}

// List returns the layer files named in the index file. Sizes come from a
// HEAD request per file; a missing index yields no objects.
func (s *HTTPStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	resp, err := s.do(ctx, http.MethodGet, s.indexFile)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list", Key: s.indexFile, Err: unavailable(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return []output.StorageObject{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StorageError{
			Operation: "list",
			Key:       s.indexFile,
			Err:       fmt.Errorf("index file returned status %d", resp.StatusCode),
		}
	}

	var objects []output.StorageObject
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !domain.IsLayerFile(line) {
			continue
		}

		obj := output.StorageObject{Key: line}
		if err := s.stat(ctx, &obj); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}

	return objects, nil
}

// GetReader returns a reader for the given file.
func (s *HTTPStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, key)
	if err != nil {
		return nil, &domain.StorageError{Operation: "read", Key: key, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &domain.StorageError{
			Operation: "read",
			Key:       key,
			Err:       fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	return resp.Body, nil
}

// stat fills in size and modification time from a HEAD request.
func (s *HTTPStorage) stat(ctx context.Context, obj *output.StorageObject) error {
	resp, err := s.do(ctx, http.MethodHead, obj.Key)
	if err != nil {
		return &domain.StorageError{Operation: "stat", Key: obj.Key, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &domain.StorageError{
			Operation: "stat",
			Key:       obj.Key,
			Err:       fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	if resp.ContentLength > 0 {
		obj.Size = resp.ContentLength
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		obj.LastModified = lm.Unix()
	}
	obj.ETag = strings.Trim(resp.Header.Get("ETag"), "\"")
	return nil
}

// do issues an authenticated request for a path relative to the base URL.
func (s *HTTPStorage) do(ctx context.Context, method, key string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/"+key, nil)
	if err != nil {
		return nil, err
	}

	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	return s.client.Do(req)
}
