package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"herd-platform/internal/models"
	"herd-platform/internal/repository"
)

func TestHerdService_CreateCow(t *testing.T) {
	var persisted *models.Cow
	repo := &fakeRepo{
		createCowFn: func(ctx context.Context, cow *models.Cow) error {
			persisted = cow
			return nil
		},
	}

	svc := NewHerdService(repo, newTestLogger(), testMetrics)

	cow, err := svc.CreateCow(context.Background(), "cow-42", &models.CreateCowRequest{
		Name:      "Annabelle",
		Birthdate: "2019-07-01",
	})
	if err != nil {
		t.Fatalf("CreateCow() error = %v", err)
	}

	if persisted == nil {
		t.Fatal("cow was not persisted")
	}
	if cow.ID != "cow-42" {
		t.Errorf("ID = %q, want cow-42", cow.ID)
	}
	if cow.Birthdate.Format("2006-01-02") != "2019-07-01" {
		t.Errorf("Birthdate = %v, want 2019-07-01", cow.Birthdate)
	}
	if cow.LatestMeasurements == nil || len(cow.LatestMeasurements) != 0 {
		t.Errorf("LatestMeasurements = %v, want empty slice", cow.LatestMeasurements)
	}
}

func TestHerdService_CreateCow_InvalidRequest(t *testing.T) {
	var created bool
	repo := &fakeRepo{
		createCowFn: func(ctx context.Context, cow *models.Cow) error {
			created = true
			return nil
		},
	}

	svc := NewHerdService(repo, newTestLogger(), testMetrics)

	_, err := svc.CreateCow(context.Background(), "cow-42", &models.CreateCowRequest{
		Name:      "Annabelle",
		Birthdate: "not-a-date",
	})

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("CreateCow() error = %v, want *models.ValidationError", err)
	}
	if created {
		t.Error("cow should not be persisted on validation error")
	}
}

func TestHerdService_CreateCow_Duplicate(t *testing.T) {
	repo := &fakeRepo{
		createCowFn: func(ctx context.Context, cow *models.Cow) error {
			return &repository.ConflictError{Resource: "cow", ID: cow.ID}
		},
	}

	svc := NewHerdService(repo, newTestLogger(), testMetrics)

	_, err := svc.CreateCow(context.Background(), "cow-42", &models.CreateCowRequest{
		Name:      "Annabelle",
		Birthdate: "2019-07-01",
	})

	var cerr *repository.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("CreateCow() error = %v, want *repository.ConflictError", err)
	}
}

func TestHerdService_GetCow_AnnotatesLatest(t *testing.T) {
	latest := []*models.Measurement{
		{ID: 1, CowID: "cow-1", Unit: models.UnitLiters, Value: floatPtr(20), IsValid: true},
		{ID: 2, CowID: "cow-1", Unit: models.UnitKilograms, Value: floatPtr(400), IsValid: true},
	}

	repo := &fakeRepo{
		getCowFn: func(ctx context.Context, cowID string) (*models.Cow, error) {
			return &models.Cow{ID: cowID, Name: "Annabelle"}, nil
		},
		latestFn: func(ctx context.Context, cowID string) ([]*models.Measurement, error) {
			return latest, nil
		},
	}

	svc := NewHerdService(repo, newTestLogger(), testMetrics)

	cow, err := svc.GetCow(context.Background(), "cow-1")
	if err != nil {
		t.Fatalf("GetCow() error = %v", err)
	}

	if len(cow.LatestMeasurements) != 2 {
		t.Fatalf("LatestMeasurements count = %d, want 2", len(cow.LatestMeasurements))
	}
	if cow.LatestMeasurements[0].Unit != models.UnitLiters {
		t.Errorf("first unit = %q, want %q", cow.LatestMeasurements[0].Unit, models.UnitLiters)
	}
}

func TestHerdService_ListCows_AnnotatesEach(t *testing.T) {
	calls := map[string]int{}

	repo := &fakeRepo{
		listCowsFn: func(ctx context.Context, limit, offset int) ([]*models.Cow, int, error) {
			return []*models.Cow{
				{ID: "cow-1", Name: "Annabelle"},
				{ID: "cow-2", Name: "Bella"},
			}, 2, nil
		},
		latestFn: func(ctx context.Context, cowID string) ([]*models.Measurement, error) {
			calls[cowID]++
			return []*models.Measurement{{ID: 1, CowID: cowID, Unit: models.UnitLiters}}, nil
		},
	}

	svc := NewHerdService(repo, newTestLogger(), testMetrics)

	cows, total, err := svc.ListCows(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("ListCows() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if calls["cow-1"] != 1 || calls["cow-2"] != 1 {
		t.Errorf("latest lookup calls = %v, want one per cow", calls)
	}
	for _, cow := range cows {
		if len(cow.LatestMeasurements) != 1 {
			t.Errorf("cow %s latest count = %d, want 1", cow.ID, len(cow.LatestMeasurements))
		}
	}
}

func TestHerdService_CreateSensor(t *testing.T) {
	var persisted *models.Sensor
	repo := &fakeRepo{
		createSensFn: func(ctx context.Context, sensor *models.Sensor) error {
			persisted = sensor
			return nil
		},
	}

	svc := NewHerdService(repo, newTestLogger(), testMetrics)

	sensor, err := svc.CreateSensor(context.Background(), "sensor-7", &models.CreateSensorRequest{Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateSensor() error = %v", err)
	}
	if persisted == nil {
		t.Fatal("sensor was not persisted")
	}
	if sensor.ID != "sensor-7" || sensor.Unit != "kg" {
		t.Errorf("sensor = %+v, want id sensor-7 unit kg", sensor)
	}
	if sensor.CreatedAt.IsZero() || time.Since(sensor.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v, want recent timestamp", sensor.CreatedAt)
	}
}
