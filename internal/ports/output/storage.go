// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"
	"io"
)

// ObjectStorage defines the secondary port for read-only access to layer files.
type ObjectStorage interface {
	// Location identifies the storage root (directory, bucket/prefix or URL).
	Location() string

	// List returns all layer files at the storage root. A missing root
	// yields an empty list, not an error.
	List(ctx context.Context) ([]StorageObject, error)

	// GetReader returns a reader for the given object.
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
}

// StorageObject represents a file in object storage.
type StorageObject struct {
	Key          string // Object key/path relative to the root
	Size         int64  // Size in bytes
	LastModified int64  // Unix timestamp
	ETag         string // Content hash
}

// StorageType names a storage backend as configured in storage.type.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeAzure StorageType = "azure"
	StorageTypeHTTP  StorageType = "http"
	StorageTypeLocal StorageType = "local"
)
