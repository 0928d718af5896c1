// Package storage provides read-only object storage adapters for layer files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// LocalStorage implements ObjectStorage for a local data directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage adapter.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// Location returns the data directory.
func (s *LocalStorage) Location() string {
	return s.basePath
}

// List returns the layer files directly inside the data directory.
// Subdirectories are not scanned. A missing directory yields no objects.
func (s *LocalStorage) List(_ context.Context) ([]output.StorageObject, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []output.StorageObject{}, nil
		}
		return nil, err
	}

	objects := make([]output.StorageObject, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !domain.IsLayerFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between listing and stat.
				continue
			}
			return nil, err
		}

		objects = append(objects, output.StorageObject{
			Key:          entry.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime().Unix(),
		})
	}

	return objects, nil
}

// GetReader returns a reader for the given object.
func (s *LocalStorage) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(s.FullPath(key)) //#nosec G304 -- key comes from our own listing
}

// FullPath returns the full path for a key.
func (s *LocalStorage) FullPath(key string) string {
	return filepath.Join(s.basePath, key)
}

// unavailable marks a remote listing failure as a storage outage.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
