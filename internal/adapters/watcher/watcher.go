// Package watcher notices changes to layer files in a local data directory.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jobrunner/layerscope/internal/domain"
)

// Event represents a change to one layer file.
type Event struct {
	Path      string
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler receives every change seen during one quiet period, one event
// per path, sorted by path.
type Handler func(ctx context.Context, events []Event) error

// Watcher watches a directory for layer file changes and reports them in
// debounced batches.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	dir       string
	debounce  time.Duration

	mu      sync.Mutex
	pending map[string]Operation
	timer   *time.Timer
}

// Config holds watcher configuration.
type Config struct {
	Dir      string
	Debounce time.Duration
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		dir:       cfg.Dir,
		debounce:  cfg.Debounce,
		pending:   make(map[string]Operation),
	}, nil
}

// Start starts watching the directory. The directory must exist.
func (w *Watcher) Start(ctx context.Context) error {
	absPath, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(absPath); err != nil {
		return err
	}
	w.logger.Info("watching layer directory", "path", absPath, "debounce", w.debounce)

	go w.eventLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}

// eventLoop processes fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.record(ctx, event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// record queues a layer file event and restarts the quiet-period timer.
func (w *Watcher) record(ctx context.Context, event fsnotify.Event) {
	if !domain.IsLayerFile(event.Name) {
		return
	}

	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
	op := fsnotifyOpToOperation(event.Op)

	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.pending[event.Name]; ok {
		op = mergeOperations(existing, op)
	}
	w.pending[event.Name] = op

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.flush(ctx) })
}

// flush hands the pending batch to the handler.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	events := make([]Event, 0, len(w.pending))
	for path, op := range w.pending {
		events = append(events, Event{Path: path, Operation: op})
	}
	w.pending = make(map[string]Operation)
	w.mu.Unlock()

	if len(events) == 0 || ctx.Err() != nil {
		return
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	w.logger.Info("layer files changed", "count", len(events))
	if err := w.handler(ctx, events); err != nil {
		w.logger.Error("handler error", "count", len(events), "error", err)
	}
}

// mergeOperations folds a new operation into a pending one for the same path.
func mergeOperations(existing, next Operation) Operation {
	switch {
	case existing == OpDelete && next == OpCreate:
		// Deleted then recreated
		return OpCreate
	case next == OpDelete:
		return OpDelete
	case existing == OpCreate:
		// Writes after a create are part of the create
		return OpCreate
	default:
		return next
	}
}

// fsnotifyOpToOperation converts fsnotify.Op to our Operation type.
func fsnotifyOpToOperation(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove):
		return OpDelete
	case op.Has(fsnotify.Rename):
		// Rename is treated as delete (the file is gone from original location)
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		// Write, Chmod, etc. are treated as modify
		return OpModify
	}
}
