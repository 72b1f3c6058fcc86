package services

import (
	"context"
	"time"

	"herd-platform/internal/models"
	"herd-platform/internal/repository"
	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

// HerdService handles cow and sensor operations, attaching the
// latest-per-unit measurement snapshot on cow read paths.
type HerdService struct {
	repo    repository.HerdRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewHerdService creates a new herd service
func NewHerdService(repo repository.HerdRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *HerdService {
	return &HerdService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateCow registers a cow under a caller-supplied id.
func (s *HerdService) CreateCow(ctx context.Context, cowID string, req *models.CreateCowRequest) (*models.Cow, error) {
	birthdate, err := req.Validate()
	if err != nil {
		return nil, err
	}

	cow := &models.Cow{
		ID:                 cowID,
		Name:               req.Name,
		Birthdate:          models.NewDate(birthdate),
		CreatedAt:          time.Now().UTC(),
		LatestMeasurements: []*models.Measurement{},
	}

	if err := s.repo.CreateCow(ctx, cow); err != nil {
		return nil, err
	}

	return cow, nil
}

// GetCow returns a cow annotated with its latest measurement per
// sensor unit.
func (s *HerdService) GetCow(ctx context.Context, cowID string) (*models.Cow, error) {
	cow, err := s.repo.GetCow(ctx, cowID)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.LatestMeasurementsPerUnit(ctx, cowID)
	if err != nil {
		return nil, err
	}
	cow.LatestMeasurements = latest

	return cow, nil
}

// ListCows returns a page of cows plus the total count, each cow
// annotated with its latest-per-unit measurements.
func (s *HerdService) ListCows(ctx context.Context, limit, offset int) ([]*models.Cow, int, error) {
	cows, total, err := s.repo.ListCows(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	for _, cow := range cows {
		latest, err := s.repo.LatestMeasurementsPerUnit(ctx, cow.ID)
		if err != nil {
			return nil, 0, err
		}
		cow.LatestMeasurements = latest
	}

	return cows, total, nil
}

// DeleteCow removes a cow and, by cascade, all its measurements.
func (s *HerdService) DeleteCow(ctx context.Context, cowID string) error {
	if err := s.repo.DeleteCow(ctx, cowID); err != nil {
		return err
	}

	s.logger.Info(ctx, "[HERD_DELETE_COW] Cow and its measurements removed", logging.Fields{
		"cow_id": cowID,
	})

	return nil
}

// CreateSensor registers a sensor under a caller-supplied id.
func (s *HerdService) CreateSensor(ctx context.Context, sensorID string, req *models.CreateSensorRequest) (*models.Sensor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sensor := &models.Sensor{
		ID:        sensorID,
		Unit:      req.Unit,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateSensor(ctx, sensor); err != nil {
		return nil, err
	}

	return sensor, nil
}

// GetSensor returns a sensor by id.
func (s *HerdService) GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error) {
	return s.repo.GetSensor(ctx, sensorID)
}

// ListSensors returns a page of sensors plus the total count.
func (s *HerdService) ListSensors(ctx context.Context, limit, offset int) ([]*models.Sensor, int, error) {
	return s.repo.ListSensors(ctx, limit, offset)
}

// DeleteSensor removes a sensor and, by cascade, its measurements.
func (s *HerdService) DeleteSensor(ctx context.Context, sensorID string) error {
	return s.repo.DeleteSensor(ctx, sensorID)
}
