package services

import (
	"context"
	"io"
	"time"

	"herd-platform/internal/models"
	"herd-platform/internal/repository"
	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

// One collector for the whole test package; promauto panics on
// duplicate registration.
var testMetrics = metrics.NewCollector("herd_services_test")

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

// fakeRepo implements repository.HerdRepository with overridable hooks.
type fakeRepo struct {
	createCowFn   func(ctx context.Context, cow *models.Cow) error
	getCowFn      func(ctx context.Context, cowID string) (*models.Cow, error)
	listCowsFn    func(ctx context.Context, limit, offset int) ([]*models.Cow, int, error)
	deleteCowFn   func(ctx context.Context, cowID string) error
	getSensorFn   func(ctx context.Context, sensorID string) (*models.Sensor, error)
	createMeasFn  func(ctx context.Context, m *models.Measurement) error
	latestFn      func(ctx context.Context, cowID string) ([]*models.Measurement, error)
	weightRptFn   func(ctx context.Context, reportDate time.Time) ([]*models.WeightStatusRow, error)
	milkRptFn     func(ctx context.Context, startDate, endDate time.Time) ([]*models.MilkProductionRow, error)
	deleteMeasFn  func(ctx context.Context, id int64) error
	getMeasFn     func(ctx context.Context, id int64) (*models.Measurement, error)
	listMeasFn    func(ctx context.Context, filter repository.MeasurementFilter) ([]*models.Measurement, int, error)
	createSensFn  func(ctx context.Context, sensor *models.Sensor) error
	listSensorsFn func(ctx context.Context, limit, offset int) ([]*models.Sensor, int, error)
	deleteSensFn  func(ctx context.Context, sensorID string) error
}

func (f *fakeRepo) CreateCow(ctx context.Context, cow *models.Cow) error {
	if f.createCowFn != nil {
		return f.createCowFn(ctx, cow)
	}
	return nil
}

func (f *fakeRepo) GetCow(ctx context.Context, cowID string) (*models.Cow, error) {
	if f.getCowFn != nil {
		return f.getCowFn(ctx, cowID)
	}
	return &models.Cow{ID: cowID, Name: "test-cow"}, nil
}

func (f *fakeRepo) ListCows(ctx context.Context, limit, offset int) ([]*models.Cow, int, error) {
	if f.listCowsFn != nil {
		return f.listCowsFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeRepo) DeleteCow(ctx context.Context, cowID string) error {
	if f.deleteCowFn != nil {
		return f.deleteCowFn(ctx, cowID)
	}
	return nil
}

func (f *fakeRepo) CreateSensor(ctx context.Context, sensor *models.Sensor) error {
	if f.createSensFn != nil {
		return f.createSensFn(ctx, sensor)
	}
	return nil
}

func (f *fakeRepo) GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error) {
	if f.getSensorFn != nil {
		return f.getSensorFn(ctx, sensorID)
	}
	return &models.Sensor{ID: sensorID, Unit: models.UnitLiters}, nil
}

func (f *fakeRepo) ListSensors(ctx context.Context, limit, offset int) ([]*models.Sensor, int, error) {
	if f.listSensorsFn != nil {
		return f.listSensorsFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeRepo) DeleteSensor(ctx context.Context, sensorID string) error {
	if f.deleteSensFn != nil {
		return f.deleteSensFn(ctx, sensorID)
	}
	return nil
}

func (f *fakeRepo) CreateMeasurement(ctx context.Context, m *models.Measurement) error {
	if f.createMeasFn != nil {
		return f.createMeasFn(ctx, m)
	}
	m.ID = 1
	return nil
}

func (f *fakeRepo) GetMeasurement(ctx context.Context, id int64) (*models.Measurement, error) {
	if f.getMeasFn != nil {
		return f.getMeasFn(ctx, id)
	}
	return &models.Measurement{ID: id}, nil
}

func (f *fakeRepo) ListMeasurements(ctx context.Context, filter repository.MeasurementFilter) ([]*models.Measurement, int, error) {
	if f.listMeasFn != nil {
		return f.listMeasFn(ctx, filter)
	}
	return nil, 0, nil
}

func (f *fakeRepo) DeleteMeasurement(ctx context.Context, id int64) error {
	if f.deleteMeasFn != nil {
		return f.deleteMeasFn(ctx, id)
	}
	return nil
}

func (f *fakeRepo) LatestMeasurementsPerUnit(ctx context.Context, cowID string) ([]*models.Measurement, error) {
	if f.latestFn != nil {
		return f.latestFn(ctx, cowID)
	}
	return []*models.Measurement{}, nil
}

func (f *fakeRepo) WeightStatusReport(ctx context.Context, reportDate time.Time) ([]*models.WeightStatusRow, error) {
	if f.weightRptFn != nil {
		return f.weightRptFn(ctx, reportDate)
	}
	return nil, nil
}

func (f *fakeRepo) MilkProductionReport(ctx context.Context, startDate, endDate time.Time) ([]*models.MilkProductionRow, error) {
	if f.milkRptFn != nil {
		return f.milkRptFn(ctx, startDate, endDate)
	}
	return nil, nil
}

func (f *fakeRepo) HealthCheck(ctx context.Context) error {
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
