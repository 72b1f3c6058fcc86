package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"herd-platform/internal/models"
	"herd-platform/internal/repository"
	"herd-platform/internal/services"
	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

// HerdHandler handles the cow/sensor/measurement API endpoints plus
// the two report endpoints.
type HerdHandler struct {
	herdService        *services.HerdService
	measurementService *services.MeasurementService
	reportService      *services.ReportService
	logger             *logging.StructuredLogger
	metrics            *metrics.Collector
}

// NewHerdHandler creates a new herd handler
func NewHerdHandler(
	herdService *services.HerdService,
	measurementService *services.MeasurementService,
	reportService *services.ReportService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *HerdHandler {
	return &HerdHandler{
		herdService:        herdService,
		measurementService: measurementService,
		reportService:      reportService,
		logger:             logger,
		metrics:            metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// CowListResponse is the paged cow listing
type CowListResponse struct {
	Cows  []*models.Cow `json:"cows"`
	Total int           `json:"total"`
}

// SensorListResponse is the paged sensor listing
type SensorListResponse struct {
	Sensors []*models.Sensor `json:"sensors"`
	Total   int              `json:"total"`
}

// MeasurementListResponse is the paged measurement listing
type MeasurementListResponse struct {
	Measurements []*models.Measurement `json:"measurements"`
	Total        int                   `json:"total"`
}

// CreateCow handles POST /api/v1/cows/{cow_id}
func (h *HerdHandler) CreateCow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cowID := mux.Vars(r)["cow_id"]

	var req models.CreateCowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	cow, err := h.herdService.CreateCow(ctx, cowID, &req)
	if err != nil {
		h.sendServiceError(w, r, "/api/v1/cows", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/cows", "POST", "201")
	h.sendJSON(w, cow, http.StatusCreated)
}

// ListCows handles GET /api/v1/cows
func (h *HerdHandler) ListCows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/v1/cows").Observe(time.Since(startTime).Seconds())
	}()

	skip, limit := parsePagination(r, 20)

	cows, total, err := h.herdService.ListCows(ctx, limit, skip)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_COWS_ERROR] Failed to list cows", logging.Fields{}, err)
		h.sendServiceError(w, r, "/api/v1/cows", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/cows", "GET", "200")
	h.sendJSON(w, CowListResponse{Cows: cows, Total: total}, http.StatusOK)
}

// GetCow handles GET /api/v1/cows/{cow_id}
func (h *HerdHandler) GetCow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cowID := mux.Vars(r)["cow_id"]

	cow, err := h.herdService.GetCow(ctx, cowID)
	if err != nil {
		h.sendServiceError(w, r, "/api/v1/cows", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/cows", "GET", "200")
	h.sendJSON(w, cow, http.StatusOK)
}

// DeleteCow handles DELETE /api/v1/cows/{cow_id}
func (h *HerdHandler) DeleteCow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cowID := mux.Vars(r)["cow_id"]

	if err := h.herdService.DeleteCow(ctx, cowID); err != nil {
		h.sendServiceError(w, r, "/api/v1/cows", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/cows", "DELETE", "204")
	w.WriteHeader(http.StatusNoContent)
}

// CreateSensor handles POST /api/v1/sensors/{sensor_id}
func (h *HerdHandler) CreateSensor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sensorID := mux.Vars(r)["sensor_id"]

	var req models.CreateSensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	sensor, err := h.herdService.CreateSensor(ctx, sensorID, &req)
	if err != nil {
		h.sendServiceError(w, r, "/api/v1/sensors", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/sensors", "POST", "201")
	h.sendJSON(w, sensor, http.StatusCreated)
}

// ListSensors handles GET /api/v1/sensors
func (h *HerdHandler) ListSensors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, limit := parsePagination(r, 100)

	sensors, total, err := h.herdService.ListSensors(ctx, limit, skip)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_SENSORS_ERROR] Failed to list sensors", logging.Fields{}, err)
		h.sendServiceError(w, r, "/api/v1/sensors", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/sensors", "GET", "200")
	h.sendJSON(w, SensorListResponse{Sensors: sensors, Total: total}, http.StatusOK)
}

// GetSensor handles GET /api/v1/sensors/{sensor_id}
func (h *HerdHandler) GetSensor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sensorID := mux.Vars(r)["sensor_id"]

	sensor, err := h.herdService.GetSensor(ctx, sensorID)
	if err != nil {
		h.sendServiceError(w, r, "/api/v1/sensors", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/sensors", "GET", "200")
	h.sendJSON(w, sensor, http.StatusOK)
}

// DeleteSensor handles DELETE /api/v1/sensors/{sensor_id}
func (h *HerdHandler) DeleteSensor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sensorID := mux.Vars(r)["sensor_id"]

	if err := h.herdService.DeleteSensor(ctx, sensorID); err != nil {
		h.sendServiceError(w, r, "/api/v1/sensors", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/sensors", "DELETE", "204")
	w.WriteHeader(http.StatusNoContent)
}

// CreateMeasurement handles POST /api/v1/measurements
func (h *HerdHandler) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/v1/measurements").Observe(time.Since(startTime).Seconds())
	}()

	var req models.CreateMeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := h.measurementService.Create(ctx, &req)
	if err != nil {
		h.sendServiceError(w, r, "/api/v1/measurements", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/measurements", "POST", "201")
	h.sendJSON(w, m, http.StatusCreated)
}

// ListMeasurements handles GET /api/v1/measurements
func (h *HerdHandler) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, limit := parsePagination(r, 100)

	filter := repository.MeasurementFilter{
		Limit:  limit,
		Offset: skip,
	}

	if cowID := r.URL.Query().Get("cow_id"); cowID != "" {
		filter.CowID = &cowID
	}
	if sensorID := r.URL.Query().Get("sensor_id"); sensorID != "" {
		filter.SensorID = &sensorID
	}

	measurements, total, err := h.measurementService.List(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_MEASUREMENTS_ERROR] Failed to list measurements", logging.Fields{}, err)
		h.sendServiceError(w, r, "/api/v1/measurements", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/measurements", "GET", "200")
	h.sendJSON(w, MeasurementListResponse{Measurements: measurements, Total: total}, http.StatusOK)
}

// GetMeasurement handles GET /api/v1/measurements/{measurement_id}
func (h *HerdHandler) GetMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["measurement_id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid measurement id", http.StatusBadRequest)
		return
	}

	m, err := h.measurementService.Get(ctx, id)
	if err != nil {
		h.sendServiceError(w, r, "/api/v1/measurements", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/measurements", "GET", "200")
	h.sendJSON(w, m, http.StatusOK)
}

// DeleteMeasurement handles DELETE /api/v1/measurements/{measurement_id}
func (h *HerdHandler) DeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["measurement_id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid measurement id", http.StatusBadRequest)
		return
	}

	if err := h.measurementService.Delete(ctx, id); err != nil {
		h.sendServiceError(w, r, "/api/v1/measurements", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/measurements", "DELETE", "204")
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *HerdHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// parsePagination reads skip/limit query parameters with a per-route
// default limit, capped at 1000.
func parsePagination(r *http.Request, defaultLimit int) (skip, limit int) {
	skip = 0
	limit = defaultLimit

	if s := r.URL.Query().Get("skip"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			skip = v
		}
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	return skip, limit
}

// sendJSON sends a JSON response
func (h *HerdHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *HerdHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// sendServiceError maps the error taxonomy to HTTP statuses: Conflict
// on duplicate create, NotFound on missing references, BadRequest on
// malformed input, internal otherwise.
func (h *HerdHandler) sendServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var conflictErr *repository.ConflictError
	var notFoundErr *repository.NotFoundError
	var validationErr *models.ValidationError

	switch {
	case errors.As(err, &conflictErr):
		h.metrics.RecordAPIError("conflict", endpoint)
		h.sendError(w, r, err.Error(), http.StatusConflict)
	case errors.As(err, &notFoundErr):
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, err.Error(), http.StatusNotFound)
	case errors.As(err, &validationErr):
		h.metrics.RecordAPIError("bad_request", endpoint)
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(r.Context(), "[API_INTERNAL_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "internal server error", http.StatusInternalServerError)
	}
}

// RegisterRoutes registers all herd API routes
func (h *HerdHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/cows", h.ListCows).Methods("GET")
	api.HandleFunc("/cows/{cow_id}", h.CreateCow).Methods("POST")
	api.HandleFunc("/cows/{cow_id}", h.GetCow).Methods("GET")
	api.HandleFunc("/cows/{cow_id}", h.DeleteCow).Methods("DELETE")

	api.HandleFunc("/sensors", h.ListSensors).Methods("GET")
	api.HandleFunc("/sensors/{sensor_id}", h.CreateSensor).Methods("POST")
	api.HandleFunc("/sensors/{sensor_id}", h.GetSensor).Methods("GET")
	api.HandleFunc("/sensors/{sensor_id}", h.DeleteSensor).Methods("DELETE")

	api.HandleFunc("/measurements", h.CreateMeasurement).Methods("POST")
	api.HandleFunc("/measurements", h.ListMeasurements).Methods("GET")
	api.HandleFunc("/measurements/{measurement_id}", h.GetMeasurement).Methods("GET")
	api.HandleFunc("/measurements/{measurement_id}", h.DeleteMeasurement).Methods("DELETE")

	api.HandleFunc("/reports/weights", h.WeightReport).Methods("GET")
	api.HandleFunc("/reports/milk", h.MilkReport).Methods("GET")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
