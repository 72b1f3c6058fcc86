package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"herd-platform/internal/models"
	"herd-platform/pkg/database"
	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

// HerdRepository provides data access for cows, sensors, measurements
// and the two analytical reports.
type HerdRepository interface {
	// Cow operations
	CreateCow(ctx context.Context, cow *models.Cow) error
	GetCow(ctx context.Context, cowID string) (*models.Cow, error)
	ListCows(ctx context.Context, limit, offset int) ([]*models.Cow, int, error)
	DeleteCow(ctx context.Context, cowID string) error

	// Sensor operations
	CreateSensor(ctx context.Context, sensor *models.Sensor) error
	GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error)
	ListSensors(ctx context.Context, limit, offset int) ([]*models.Sensor, int, error)
	DeleteSensor(ctx context.Context, sensorID string) error

	// Measurement operations
	CreateMeasurement(ctx context.Context, m *models.Measurement) error
	GetMeasurement(ctx context.Context, id int64) (*models.Measurement, error)
	ListMeasurements(ctx context.Context, filter MeasurementFilter) ([]*models.Measurement, int, error)
	DeleteMeasurement(ctx context.Context, id int64) error

	// LatestMeasurementsPerUnit returns, for the given cow, the most
	// recent measurement per distinct sensor unit, validity ignored.
	LatestMeasurementsPerUnit(ctx context.Context, cowID string) ([]*models.Measurement, error)

	// Report queries
	WeightStatusReport(ctx context.Context, reportDate time.Time) ([]*models.WeightStatusRow, error)
	MilkProductionReport(ctx context.Context, startDate, endDate time.Time) ([]*models.MilkProductionRow, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// MeasurementFilter defines filters for querying measurements.
type MeasurementFilter struct {
	CowID    *string
	SensorID *string
	Limit    int
	Offset   int
}

// herdRepository implements HerdRepository against PostgreSQL.
type herdRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	latest  latestResolver
}

// NewHerdRepository creates a new herd repository. The latest-per-unit
// strategy is fixed here, once, from the store's declared capability:
// ranking window functions when available, a per-unit loop otherwise.
func NewHerdRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, windowFunctions bool) HerdRepository {
	r := &herdRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
	if windowFunctions {
		r.latest = &windowLatestResolver{db: db}
	} else {
		r.latest = &loopLatestResolver{db: db}
	}
	return r
}

// CreateCow inserts a new cow. A duplicate id surfaces as ConflictError;
// the primary key constraint is the sole serialization point between
// racing creators.
func (r *herdRepository) CreateCow(ctx context.Context, cow *models.Cow) error {
	query := `
		INSERT INTO cows (id, name, birthdate, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, "insert_cow", query,
		cow.ID,
		cow.Name,
		cow.Birthdate,
		cow.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Resource: "cow", ID: cow.ID}
		}
		return fmt.Errorf("failed to create cow: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_COW] Cow created", logging.Fields{
		"cow_id": cow.ID,
		"name":   cow.Name,
	})

	return nil
}

// GetCow retrieves a cow by ID. Latest measurements are not attached
// here; that is the service's concern.
func (r *herdRepository) GetCow(ctx context.Context, cowID string) (*models.Cow, error) {
	query := `
		SELECT id, name, birthdate, created_at
		FROM cows
		WHERE id = $1
	`

	var cow models.Cow
	err := r.db.GetContext(ctx, "get_cow", &cow, query, cowID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "cow", ID: cowID}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get cow: %w", err)
	}

	return &cow, nil
}

// ListCows retrieves cows with pagination plus the total count.
func (r *herdRepository) ListCows(ctx context.Context, limit, offset int) ([]*models.Cow, int, error) {
	var total int
	err := r.db.GetContext(ctx, "count_cows", &total, `SELECT COUNT(*) FROM cows`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count cows: %w", err)
	}

	query := `
		SELECT id, name, birthdate, created_at
		FROM cows
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	var cows []*models.Cow
	err = r.db.SelectContext(ctx, "list_cows", &cows, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cows: %w", err)
	}

	return cows, total, nil
}

// DeleteCow removes a cow; its measurements go with it via the
// ON DELETE CASCADE constraint.
func (r *herdRepository) DeleteCow(ctx context.Context, cowID string) error {
	result, err := r.db.ExecContext(ctx, "delete_cow", `DELETE FROM cows WHERE id = $1`, cowID)
	if err != nil {
		return fmt.Errorf("failed to delete cow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "cow", ID: cowID}
	}

	r.logger.Debug(ctx, "[REPO_DELETE_COW] Cow deleted", logging.Fields{
		"cow_id": cowID,
	})

	return nil
}

// CreateSensor inserts a new sensor; duplicate ids conflict.
func (r *herdRepository) CreateSensor(ctx context.Context, sensor *models.Sensor) error {
	query := `
		INSERT INTO sensors (id, unit, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, "insert_sensor", query,
		sensor.ID,
		sensor.Unit,
		sensor.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Resource: "sensor", ID: sensor.ID}
		}
		return fmt.Errorf("failed to create sensor: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_SENSOR] Sensor created", logging.Fields{
		"sensor_id": sensor.ID,
		"unit":      sensor.Unit,
	})

	return nil
}

// GetSensor retrieves a sensor by ID.
func (r *herdRepository) GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error) {
	query := `
		SELECT id, unit, created_at
		FROM sensors
		WHERE id = $1
	`

	var sensor models.Sensor
	err := r.db.GetContext(ctx, "get_sensor", &sensor, query, sensorID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "sensor", ID: sensorID}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}

	return &sensor, nil
}

// ListSensors retrieves sensors with pagination plus the total count.
func (r *herdRepository) ListSensors(ctx context.Context, limit, offset int) ([]*models.Sensor, int, error) {
	var total int
	err := r.db.GetContext(ctx, "count_sensors", &total, `SELECT COUNT(*) FROM sensors`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sensors: %w", err)
	}

	query := `
		SELECT id, unit, created_at
		FROM sensors
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	var sensors []*models.Sensor
	err = r.db.SelectContext(ctx, "list_sensors", &sensors, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sensors: %w", err)
	}

	return sensors, total, nil
}

// DeleteSensor removes a sensor, cascading to its measurements.
func (r *herdRepository) DeleteSensor(ctx context.Context, sensorID string) error {
	result, err := r.db.ExecContext(ctx, "delete_sensor", `DELETE FROM sensors WHERE id = $1`, sensorID)
	if err != nil {
		return fmt.Errorf("failed to delete sensor: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "sensor", ID: sensorID}
	}

	return nil
}

// CreateMeasurement inserts a pre-classified measurement and fills in
// its server-assigned id. Dangling references surface as NotFoundError
// even when a referenced row disappears between lookup and insert.
func (r *herdRepository) CreateMeasurement(ctx context.Context, m *models.Measurement) error {
	query := `
		INSERT INTO measurements (
			sensor_id, cow_id, timestamp, value,
			is_valid, validation_error, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		m.SensorID,
		m.CowID,
		m.Timestamp,
		m.Value,
		m.IsValid,
		m.ValidationError,
		m.CreatedAt,
	).Scan(&m.ID)

	if err != nil {
		if resource, ok := foreignKeyTarget(err); ok {
			id := m.CowID
			if resource == "sensor" {
				id = m.SensorID
			}
			return &NotFoundError{Resource: resource, ID: id}
		}
		r.metrics.RecordDBError("insert_measurement_error")
		return fmt.Errorf("failed to create measurement: %w", err)
	}

	if !m.IsValid {
		r.metrics.MeasurementsInvalidTotal.Inc()
	}
	r.metrics.MeasurementsIngestedTotal.Inc()

	return nil
}

// GetMeasurement retrieves a measurement by its sequential id.
func (r *herdRepository) GetMeasurement(ctx context.Context, id int64) (*models.Measurement, error) {
	query := `
		SELECT id, sensor_id, cow_id, timestamp, value,
		       is_valid, validation_error, created_at
		FROM measurements
		WHERE id = $1
	`

	var m models.Measurement
	err := r.db.GetContext(ctx, "get_measurement", &m, query, id)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "measurement", ID: fmt.Sprintf("%d", id)}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get measurement: %w", err)
	}

	normalizeMeasurement(&m)
	return &m, nil
}

// ListMeasurements retrieves measurements with filtering and pagination.
func (r *herdRepository) ListMeasurements(ctx context.Context, filter MeasurementFilter) ([]*models.Measurement, int, error) {
	query := `
		SELECT id, sensor_id, cow_id, timestamp, value,
		       is_valid, validation_error, created_at
		FROM measurements
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.CowID != nil {
		query += fmt.Sprintf(" AND cow_id = $%d", argNum)
		args = append(args, *filter.CowID)
		argNum++
	}

	if filter.SensorID != nil {
		query += fmt.Sprintf(" AND sensor_id = $%d", argNum)
		args = append(args, *filter.SensorID)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var total int
	err := r.db.GetContext(ctx, "count_measurements", &total, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count measurements: %w", err)
	}

	query += " ORDER BY id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var measurements []*models.Measurement
	err = r.db.SelectContext(ctx, "list_measurements", &measurements, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list measurements: %w", err)
	}

	for _, m := range measurements {
		normalizeMeasurement(m)
	}

	return measurements, total, nil
}

// DeleteMeasurement removes a single measurement by id.
func (r *herdRepository) DeleteMeasurement(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "delete_measurement", `DELETE FROM measurements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete measurement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "measurement", ID: fmt.Sprintf("%d", id)}
	}

	return nil
}

// LatestMeasurementsPerUnit delegates to the strategy picked at
// construction time.
func (r *herdRepository) LatestMeasurementsPerUnit(ctx context.Context, cowID string) ([]*models.Measurement, error) {
	timer := time.Now()
	defer func() {
		r.metrics.DBQueryDuration.WithLabelValues("latest_per_unit").Observe(time.Since(timer).Seconds())
	}()

	measurements, err := r.latest.LatestPerUnit(ctx, cowID)
	if err != nil {
		r.metrics.RecordDBError("latest_per_unit_error")
		return nil, fmt.Errorf("failed to resolve latest measurements: %w", err)
	}

	for _, m := range measurements {
		normalizeMeasurement(m)
	}

	return measurements, nil
}

// HealthCheck performs a repository health check.
func (r *herdRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// normalizeMeasurement pins timestamps to UTC so they serialize with
// the "Z" suffix regardless of the connection's time zone.
func normalizeMeasurement(m *models.Measurement) {
	m.Timestamp = m.Timestamp.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// foreignKeyTarget maps a PostgreSQL foreign key violation (SQLSTATE
// 23503) on measurements to the missing resource name.
func foreignKeyTarget(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23503" {
		return "", false
	}
	if pqErr.Constraint == "measurements_sensor_id_fkey" {
		return "sensor", true
	}
	return "cow", true
}

// NotFoundError represents a missing or dangling resource reference.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ConflictError represents a duplicate identifier on create.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.ID)
}

func (e *ConflictError) IsTransient() bool {
	return false
}
