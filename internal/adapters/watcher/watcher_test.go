package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestFsnotifyOpToOperation(t *testing.T) {
	tests := []struct {
		name     string
		op       fsnotify.Op
		expected Operation
	}{
		{name: "Remove returns OpDelete", op: fsnotify.Remove, expected: OpDelete},
		{name: "Rename returns OpDelete", op: fsnotify.Rename, expected: OpDelete},
		{name: "Create returns OpCreate", op: fsnotify.Create, expected: OpCreate},
		{name: "Write returns OpModify", op: fsnotify.Write, expected: OpModify},
		{name: "Chmod returns OpModify", op: fsnotify.Chmod, expected: OpModify},
		{name: "Remove takes precedence over Write", op: fsnotify.Remove | fsnotify.Write, expected: OpDelete},
		{name: "Create takes precedence over Write", op: fsnotify.Create | fsnotify.Write, expected: OpCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fsnotifyOpToOperation(tt.op); got != tt.expected {
				t.Errorf("fsnotifyOpToOperation(%v) = %v, want %v", tt.op, got, tt.expected)
			}
		})
	}
}

func TestMergeOperations(t *testing.T) {
	tests := []struct {
		existing Operation
		next     Operation
		want     Operation
	}{
		{OpDelete, OpCreate, OpCreate},
		{OpCreate, OpModify, OpCreate},
		{OpCreate, OpDelete, OpDelete},
		{OpModify, OpModify, OpModify},
		{OpModify, OpDelete, OpDelete},
	}

	for _, tt := range tests {
		if got := mergeOperations(tt.existing, tt.next); got != tt.want {
			t.Errorf("mergeOperations(%s, %s) = %s, want %s", tt.existing, tt.next, got, tt.want)
		}
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op       Operation
		expected string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.op.String(); got != tt.expected {
				t.Errorf("Operation.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWatcherBatchesLayerFileEvents(t *testing.T) {
	dir := t.TempDir()
	batches := make(chan []Event, 4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	w, err := New(Config{Dir: dir, Debounce: 200 * time.Millisecond}, func(_ context.Context, events []Event) error {
		batches <- events
		return nil
	}, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, name := range []string{"a.geojson", "b.geojson_part-0.gz", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	select {
	case events := <-batches:
		if len(events) != 2 {
			t.Fatalf("len(events) = %d, want 2 layer files: %+v", len(events), events)
		}
		if filepath.Base(events[0].Path) != "a.geojson" || filepath.Base(events[1].Path) != "b.geojson_part-0.gz" {
			t.Errorf("events = %+v, want a.geojson and b part sorted by path", events)
		}
		for _, e := range events {
			if e.Operation != OpCreate {
				t.Errorf("%s operation = %s, want create", e.Path, e.Operation)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestWatcherStartMissingDirectory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	w, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, func(context.Context, []Event) error {
		return nil
	}, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() on a missing directory should return error")
	}
}
