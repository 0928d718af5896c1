// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jobrunner/layerscope/internal/adapters/geojson"
	httpAdapter "github.com/jobrunner/layerscope/internal/adapters/http"
	"github.com/jobrunner/layerscope/internal/adapters/memo"
	"github.com/jobrunner/layerscope/internal/adapters/metrics"
	"github.com/jobrunner/layerscope/internal/adapters/projection"
	"github.com/jobrunner/layerscope/internal/adapters/storage"
	"github.com/jobrunner/layerscope/internal/adapters/watcher"
	"github.com/jobrunner/layerscope/internal/application"
	"github.com/jobrunner/layerscope/internal/config"
	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Storage       output.ObjectStorage
	Catalog       *application.LayerCatalog
	Loader        *application.LayerLoader
	Service       *application.MapService
	HealthService *application.HealthService
	HTTPServer    *httpAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("layerscope", nil)
		metricsCollector = app.Metrics
	}

	// Initialize storage adapter
	store, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = store

	// Browse pipeline
	registry := projection.NewRegistry()
	codec := geojson.NewCodec()

	app.Catalog = application.NewLayerCatalog(
		app.Storage,
		memo.NewLRU[domain.Catalog]("catalog", cfg.Cache.MaxEntries, metricsCollector),
		metricsCollector,
		logger,
	)
	app.Loader = application.NewLayerLoader(
		app.Catalog,
		app.Storage,
		codec,
		registry,
		memo.NewLRU[*domain.FeatureCollection]("collection", cfg.Cache.MaxEntries, metricsCollector),
		metricsCollector,
		logger,
	)
	app.Service = application.NewMapService(
		app.Catalog,
		app.Loader,
		application.NewCRSNormalizer(registry, metricsCollector, logger),
		codec,
		application.MapConfig{
			MaxFeatures:    cfg.Map.MaxFeatures,
			DefaultSample:  cfg.Map.DefaultSample,
			Seed:           cfg.Map.Seed,
			PreviewRows:    cfg.Map.PreviewRows,
			MaxPreviewRows: cfg.Map.MaxPreviewRows,
		},
		logger,
	)

	// Initialize health service
	app.HealthService = application.NewHealthService(app.Catalog)

	// Initialize HTTP server
	var middleware []mux.MiddlewareFunc
	if app.Metrics != nil {
		middleware = append(middleware, app.Metrics.Middleware)
	}
	app.HTTPServer = httpAdapter.NewServer(cfg.Server, app.Service, app.HealthService, logger, middleware...)
	if app.Metrics != nil {
		app.HTTPServer.Router().Handle(cfg.Metrics.Path, app.Metrics.Handler()).Methods(http.MethodGet)
	}

	// Initialize file watcher for cache invalidation
	if cfg.Watch.Enabled && output.StorageType(cfg.Storage.Type) == output.StorageTypeLocal {
		w, err := watcher.New(
			watcher.Config{
				Dir:      cfg.Storage.LocalPath,
				Debounce: cfg.Watch.Debounce,
			},
			app.handleFileEvents,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start starts all application components and blocks while the HTTP
// server runs.
func (a *App) Start(ctx context.Context) error {
	// Warm the catalog so the first request does not pay for the listing.
	if catalog, err := a.Catalog.Discover(ctx); err != nil {
		a.Logger.Warn("initial layer discovery failed", "error", err)
	} else {
		a.Logger.Info("layers discovered", "count", len(catalog), "location", a.Storage.Location())
	}

	// Start file watcher
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if err := a.HTTPServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	// Stop watcher
	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	// Shutdown HTTP server
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	a.Service.Purge()
	return nil
}

// handleFileEvents drops memoized catalogs and layers after local files change.
func (a *App) handleFileEvents(_ context.Context, events []watcher.Event) error {
	for _, event := range events {
		a.Logger.Info("layer file changed", "path", event.Path, "operation", event.Operation.String())
	}
	a.Service.Purge()
	return nil
}

// initStorage initializes the appropriate storage adapter.
func initStorage(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch output.StorageType(cfg.Type) {
	case output.StorageTypeLocal:
		return storage.NewLocalStorage(cfg.LocalPath), nil
	case output.StorageTypeS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	case output.StorageTypeAzure:
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})
	case output.StorageTypeHTTP:
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil
	default:
		return nil, &domain.ConfigError{Field: "storage.type", Message: fmt.Sprintf("unknown storage type %q", cfg.Type)}
	}
}
