package domain

import (
	"errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:      "max_features",
		Value:      -1,
		Constraint: "> 0",
		Message:    "max_features must be positive",
	}

	if err.Error() == "" {
		t.Error("Error() should not return empty string")
	}

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}
}

func TestLoadError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &LoadError{LayerID: "wells", Part: "wells.geojson_part-1.gz", Err: cause}

	if err.Error() == "" {
		t.Error("Error() should not return empty string")
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return the underlying error")
	}

	wrapped := &LoadError{LayerID: "wells", Part: "p", Err: ErrMalformedLayer}
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Error("malformed layer errors should be invalid input")
	}
}

func TestStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  *StorageError
	}{
		{
			name: "with key",
			err: &StorageError{
				Operation: "read",
				Key:       "rivers.geojson",
				Err:       errors.New("network error"),
			},
		},
		{
			name: "without key",
			err: &StorageError{
				Operation: "list",
				Err:       errors.New("access denied"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() == "" {
				t.Error("Error() should not return empty string")
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "storage.type", Message: "unknown storage type"}

	if err.Error() == "" {
		t.Error("Error() should not return empty string")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ConfigError should unwrap to ErrInvalidInput")
	}
}

func TestSentinelHierarchy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		parent error
	}{
		{"layer not found", ErrLayerNotFound, ErrNotFound},
		{"malformed layer", ErrMalformedLayer, ErrInvalidInput},
		{"unknown crs", ErrUnknownCRS, ErrUnsupported},
		{"reprojection", ErrReprojection, ErrInternal},
		{"storage", ErrStorageUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.parent) {
				t.Errorf("%v should wrap %v", tt.err, tt.parent)
			}
		})
	}
}
