package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/export"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/query"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/upstream"
)

// QueryService runs the resolve/fetch/persist workflow behind the write
// endpoints. *query.Orchestrator satisfies it.
type QueryService interface {
	ResolveAndFetch(ctx context.Context, q geo.Query, opts query.Options) (*store.StoredQuery, error)
	Refresh(ctx context.Context, id string) (*store.StoredQuery, error)
}

// Handlers holds dependencies for HTTP handlers. Defaults supplies the
// configured fetch options for requests that do not override them.
type Handlers struct {
	Store         store.Store
	Queries       QueryService
	Logger        *slog.Logger
	StartTime     time.Time
	StorageDriver string
	StoragePath   string
	Version       string
	Defaults      query.Options
}

var validate = validator.New()

// apiError is a JSON error response.
type apiError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg, Code: status})
}

// writeDomainError maps resolution, upstream and storage failures onto
// HTTP statuses. Anything unrecognized becomes a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var resErr *geo.ResolutionError
	if errors.As(err, &resErr) {
		if resErr.Reason == geo.ReasonNotFound {
			writeError(w, http.StatusNotFound, resErr.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, resErr.Error())
		return
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		if upErr.Kind == upstream.KindRateLimit {
			writeError(w, http.StatusServiceUnavailable, upErr.Error())
			return
		}
		writeError(w, http.StatusBadGateway, upErr.Error())
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "query not found")
		return
	}
	if errors.Is(err, export.ErrUnsupportedFormat) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal server error")
}

type createQueryRequest struct {
	Location     string   `json:"location"`
	Lat          *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon          *float64 `json:"lon" validate:"omitempty,gte=-180,lte=180"`
	ForecastDays int      `json:"forecast_days" validate:"omitempty,gte=1,lte=5"`
	PlacesCount  int      `json:"places_count" validate:"omitempty,gte=1,lte=20"`
	VideosCount  int      `json:"videos_count" validate:"omitempty,gte=1,lte=10"`
}

// options merges request overrides over the configured defaults. Zero
// values mean "not supplied" and fall through to the defaults.
func (req createQueryRequest) options(defaults query.Options) query.Options {
	opts := defaults
	if req.ForecastDays > 0 {
		opts.ForecastDays = req.ForecastDays
	}
	if req.PlacesCount > 0 {
		opts.PlacesCount = req.PlacesCount
	}
	if req.VideosCount > 0 {
		opts.VideosCount = req.VideosCount
	}
	return opts
}

// CreateQuery handles POST /api/v1/queries
func (h *Handlers) CreateQuery(w http.ResponseWriter, r *http.Request) {
	var req createQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Lat != nil && req.Lon == nil {
		writeError(w, http.StatusBadRequest, "lat requires lon")
		return
	}

	q := geo.Query{Text: req.Location, Lat: req.Lat, Lon: req.Lon}
	record, err := h.Queries.ResolveAndFetch(r.Context(), q, req.options(h.Defaults))
	if err != nil {
		h.Logger.Error("query failed", "input", req.Location, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// ListQueries handles GET /api/v1/queries
func (h *Handlers) ListQueries(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.List(r.Context())
	if err != nil {
		h.Logger.Error("list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list queries")
		return
	}
	if records == nil {
		records = []store.StoredQuery{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetQuery handles GET /api/v1/queries/{id}
func (h *Handlers) GetQuery(w http.ResponseWriter, r *http.Request) {
	record, err := h.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// PatchQuery handles PATCH /api/v1/queries/{id}
func (h *Handlers) PatchQuery(w http.ResponseWriter, r *http.Request) {
	var fields store.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if fields.Input == nil && fields.Temperature == nil && fields.Description == nil {
		writeError(w, http.StatusBadRequest, "no updatable fields in request")
		return
	}

	record, err := h.Store.UpdateFields(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DeleteQuery handles DELETE /api/v1/queries/{id}
func (h *Handlers) DeleteQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshQuery handles POST /api/v1/queries/{id}/refresh
func (h *Handlers) RefreshQuery(w http.ResponseWriter, r *http.Request) {
	record, err := h.Queries.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		h.Logger.Error("refresh failed", "id", r.PathValue("id"), "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ExportQueries handles GET /api/v1/export/{format}
func (h *Handlers) ExportQueries(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	records, err := h.Store.List(r.Context())
	if err != nil {
		h.Logger.Error("export list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list queries")
		return
	}

	data, err := export.Export(records, format)
	if err != nil {
		h.Logger.Error("export failed", "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export queries")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=weather_queries.%s", format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Error("failed to write export body", "error", err)
	}
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	type dbHealth struct {
		Driver       string `json:"driver"`
		Status       string `json:"status"`
		SizeBytes    int64  `json:"size_bytes,omitempty"`
		TotalQueries int    `json:"total_queries"`
	}
	type healthResponse struct {
		Status   string   `json:"status"`
		Version  string   `json:"version"`
		Uptime   string   `json:"uptime"`
		Database dbHealth `json:"database"`
	}

	resp := healthResponse{
		Status:  "healthy",
		Version: h.Version,
		Uptime:  formatUptime(time.Since(h.StartTime)),
	}

	// Database health (path omitted to avoid exposing filesystem details).
	resp.Database = dbHealth{Driver: h.StorageDriver, Status: "ok"}
	if records, err := h.Store.List(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database.Status = "error"
	} else {
		resp.Database.TotalQueries = len(records)
	}
	if h.StorageDriver == "sqlite" && h.StoragePath != "" {
		if info, err := os.Stat(h.StoragePath); err == nil {
			resp.Database.SizeBytes = info.Size()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
