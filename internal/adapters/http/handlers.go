package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/mux"
	orbjson "github.com/paulmach/orb/geojson"

	"github.com/jobrunner/layerscope/internal/domain"
)

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":            boolToStatus(details.Healthy),
		"ready":             details.Ready,
		"layers_discovered": details.LayersDiscovered,
		"components":        details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListLayers returns all discovered layers.
func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	layers, err := s.browser.Layers(r.Context())
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	response := make([]map[string]interface{}, len(layers))
	for i := range layers {
		response[i] = formatLayer(&layers[i])
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"layers": response,
		"count":  len(layers),
	})
}

// handleGetLayer returns the summary of one layer.
func (s *Server) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	summary, err := s.browser.Summary(r.Context(), mux.Vars(r)["layerId"])
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, formatSummary(summary))
}

// handleMap returns a sampled WGS 84 view of one layer.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	maxFeatures, err := intParam(r, "max_features")
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	view, err := s.browser.Map(r.Context(), mux.Vars(r)["layerId"], maxFeatures)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	fc := orbjson.NewFeatureCollection()
	fc.Features = view.Collection.Features

	response := map[string]interface{}{
		"layer_id":       view.LayerID,
		"total_features": view.Total,
		"shown_features": view.Collection.Len(),
		"max_features":   view.MaxFeatures,
		"sampled":        view.Sampled,
		"normalization":  view.Normalization,
		"crs":            view.Collection.CRS,
		"viewport":       view.Viewport,
		"data":           fc,
	}
	if view.Reason != "" {
		response["reason"] = view.Reason
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handlePreview returns the first rows of a layer's attribute table.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rows, err := intParam(r, "rows")
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	layerID := mux.Vars(r)["layerId"]
	preview, err := s.browser.Preview(r.Context(), layerID, rows)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	response := make([]map[string]interface{}, len(preview))
	for i, row := range preview {
		response[i] = map[string]interface{}{
			"index":      row.Index,
			"geometry":   row.Geometry,
			"properties": row.Properties,
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"layer_id": layerID,
		"rows":     response,
		"count":    len(response),
	})
}

// handleExport streams the WGS 84 GeoJSON document of one layer as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	layerID := mux.Vars(r)["layerId"]

	body, err := s.browser.Export(r.Context(), layerID)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", domain.ExportMediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.ExportFileName(layerID)))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handlePurge drops every memoized catalog and layer.
func (s *Server) handlePurge(w http.ResponseWriter, _ *http.Request) {
	s.browser.Purge()
	s.logger.Info("caches purged")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// intParam parses an optional non-negative integer query parameter.
// A missing parameter yields zero.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &domain.ValidationError{
			Field:      name,
			Value:      raw,
			Constraint: "non-negative integer",
			Message:    fmt.Sprintf("invalid %s parameter", name),
		}
	}
	return v, nil
}

// etagMatches reports whether an If-None-Match header matches etag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// formatLayer formats a layer descriptor for JSON output.
func formatLayer(d *domain.LayerDescriptor) map[string]interface{} {
	return map[string]interface{}{
		"id":          d.ID,
		"name":        d.DisplayName,
		"parts":       d.Parts,
		"part_count":  d.PartCount(),
		"total_bytes": d.TotalBytes,
		"size":        domain.HumanSize(d.TotalBytes),
	}
}

// formatSummary formats a layer summary for JSON output.
func formatSummary(summary *domain.LayerSummary) map[string]interface{} {
	attributes := make([]map[string]interface{}, len(summary.Attributes))
	for i, a := range summary.Attributes {
		attr := map[string]interface{}{
			"name":     a.Name,
			"type":     a.Type,
			"non_null": a.NonNull,
			"unique":   a.Unique,
		}
		if a.Numeric != nil {
			attr["numeric"] = formatNumeric(a.Numeric)
		}
		attributes[i] = attr
	}

	response := formatLayer(&summary.Layer)
	response["feature_count"] = summary.FeatureCount
	response["geometry_counts"] = summary.GeometryCounts
	response["crs"] = summary.CRS
	response["attributes"] = attributes
	response["bounds"] = nil
	if b := summary.Bounds; b != nil {
		response["bounds"] = map[string]float64{
			"min_x": b.MinX,
			"min_y": b.MinY,
			"max_x": b.MaxX,
			"max_y": b.MaxY,
		}
	}
	return response
}

// formatNumeric formats numeric attribute statistics. JSON has no NaN,
// so undefined statistics become null.
func formatNumeric(n *domain.NumericStats) map[string]interface{} {
	return map[string]interface{}{
		"count": n.Count,
		"mean":  finiteOrNil(n.Mean),
		"std":   finiteOrNil(n.Std),
		"min":   finiteOrNil(n.Min),
		"p25":   finiteOrNil(n.P25),
		"p50":   finiteOrNil(n.P50),
		"p75":   finiteOrNil(n.P75),
		"max":   finiteOrNil(n.Max),
	}
}

func finiteOrNil(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// handleServiceError maps service errors to HTTP status codes.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, domain.ErrLayerNotFound):
		s.writeError(w, http.StatusNotFound, "Layer not found")
	case errors.Is(err, domain.ErrMalformedLayer):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		s.logger.Error("storage unavailable", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "Layer storage unavailable")
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Request failed")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
