package services

import (
	"context"
	"time"

	"herd-platform/internal/models"
	"herd-platform/internal/repository"
	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

// MeasurementService handles measurement ingestion and retrieval.
type MeasurementService struct {
	repo    repository.HerdRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewMeasurementService creates a new measurement service
func NewMeasurementService(repo repository.HerdRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *MeasurementService {
	return &MeasurementService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Create ingests a measurement: resolve the sensor (its unit drives
// classification), confirm the cow exists, convert the epoch
// timestamp, classify the value, persist. Invalid values are stored
// flagged, never rejected.
func (s *MeasurementService) Create(ctx context.Context, req *models.CreateMeasurementRequest) (*models.Measurement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sensor, err := s.repo.GetSensor(ctx, req.SensorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetCow(ctx, req.CowID); err != nil {
		return nil, err
	}

	timestamp, err := models.EpochToTime(req.Timestamp)
	if err != nil {
		return nil, err
	}

	isValid, validationError := models.Classify(req.Value, sensor.Unit)

	m := &models.Measurement{
		SensorID:        req.SensorID,
		CowID:           req.CowID,
		Timestamp:       timestamp,
		Value:           req.Value,
		IsValid:         isValid,
		ValidationError: validationError,
		CreatedAt:       time.Now().UTC(),
		Unit:            sensor.Unit,
	}

	if err := s.repo.CreateMeasurement(ctx, m); err != nil {
		return nil, err
	}

	if !isValid {
		s.logger.Debug(ctx, "[MEASUREMENT_INVALID] Measurement stored with validation error", logging.Fields{
			"measurement_id":   m.ID,
			"sensor_id":        m.SensorID,
			"cow_id":           m.CowID,
			"validation_error": *validationError,
		})
	}

	return m, nil
}

// Get returns a measurement by id.
func (s *MeasurementService) Get(ctx context.Context, id int64) (*models.Measurement, error) {
	return s.repo.GetMeasurement(ctx, id)
}

// List returns a page of measurements plus the total count.
func (s *MeasurementService) List(ctx context.Context, filter repository.MeasurementFilter) ([]*models.Measurement, int, error) {
	return s.repo.ListMeasurements(ctx, filter)
}

// Delete removes a measurement by id.
func (s *MeasurementService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteMeasurement(ctx, id)
}
