package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/jobrunner/layerscope/internal/config"
	"github.com/jobrunner/layerscope/internal/domain"
	"github.com/jobrunner/layerscope/internal/ports/input"
)

// mockBrowser implements input.LayerBrowser for testing.
type mockBrowser struct {
	layers  []domain.LayerDescriptor
	summary *domain.LayerSummary
	view    *domain.MapView
	preview []domain.PreviewRow
	export  []byte
	err     error

	lastLayerID string
	lastMax     int
	lastRows    int
	purges      int
}

func (m *mockBrowser) Layers(_ context.Context) ([]domain.LayerDescriptor, error) {
	return m.layers, m.err
}

func (m *mockBrowser) Summary(_ context.Context, layerID string) (*domain.LayerSummary, error) {
	m.lastLayerID = layerID
	return m.summary, m.err
}

func (m *mockBrowser) Map(_ context.Context, layerID string, maxFeatures int) (*domain.MapView, error) {
	m.lastLayerID = layerID
	m.lastMax = maxFeatures
	return m.view, m.err
}

func (m *mockBrowser) Preview(_ context.Context, layerID string, rows int) ([]domain.PreviewRow, error) {
	m.lastLayerID = layerID
	m.lastRows = rows
	return m.preview, m.err
}

func (m *mockBrowser) Export(_ context.Context, layerID string) ([]byte, error) {
	m.lastLayerID = layerID
	return m.export, m.err
}

func (m *mockBrowser) Purge() { m.purges++ }

// mockHealth implements input.HealthChecker for testing.
type mockHealth struct {
	healthy bool
	ready   bool
	layers  int
}

func (m *mockHealth) IsHealthy(_ context.Context) bool { return m.healthy }
func (m *mockHealth) IsReady(_ context.Context) bool   { return m.ready }

func (m *mockHealth) GetHealthDetails(_ context.Context) input.HealthDetails {
	status := "ok"
	if !m.ready {
		status = "unreachable"
	}
	return input.HealthDetails{
		Healthy:          m.healthy,
		Ready:            m.ready,
		LayersDiscovered: m.layers,
		Components:       map[string]string{"storage": status},
	}
}

func newTestServer(browser *mockBrowser, health *mockHealth) *Server {
	if browser == nil {
		browser = &mockBrowser{}
	}
	if health == nil {
		health = &mockHealth{healthy: true, ready: true}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080}
	return NewServer(cfg, browser, health, logger)
}
