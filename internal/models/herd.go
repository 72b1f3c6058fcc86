package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"
	"time"
)

// Date is a calendar date that crosses the boundary as YYYY-MM-DD and
// maps to a SQL date column.
type Date struct {
	time.Time
}

// NewDate builds a Date pinned to UTC midnight.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON parses a "YYYY-MM-DD" date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Scan implements sql.Scanner for date columns.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		d.Time = v
		return nil
	case nil:
		d.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Cow represents a monitored animal. IDs are caller-supplied opaque
// strings and immutable after creation.
type Cow struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Birthdate Date      `json:"birthdate" db:"birthdate"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// LatestMeasurements holds the most recent measurement per sensor
	// unit, populated on read paths only.
	LatestMeasurements []*Measurement `json:"latest_measurements" db:"-"`
}

// Sensor represents a measurement source identified by the physical
// unit it reports in (e.g. "L", "kg").
type Sensor struct {
	ID        string    `json:"id" db:"id"`
	Unit      string    `json:"unit" db:"unit"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Measurement represents a single timestamped value from a sensor for
// a cow. Value is a pointer so NULL readings survive the round trip.
// IsValid and ValidationError are computed once at creation and never
// mutated afterwards.
type Measurement struct {
	ID              int64     `json:"id" db:"id"`
	SensorID        string    `json:"sensor_id" db:"sensor_id"`
	CowID           string    `json:"cow_id" db:"cow_id"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
	Value           *float64  `json:"value" db:"value"`
	IsValid         bool      `json:"is_valid" db:"is_valid"`
	ValidationError *string   `json:"validation_error" db:"validation_error"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	// Unit is the owning sensor's unit, attached on joined reads such
	// as the latest-per-unit snapshot.
	Unit string `json:"unit,omitempty" db:"unit"`
}

// CreateCowRequest is the payload for POST /api/v1/cows/{cow_id}.
type CreateCowRequest struct {
	Name      string `json:"name"`
	Birthdate string `json:"birthdate"`
}

// Validate checks field constraints and parses the birthdate.
func (r *CreateCowRequest) Validate() (time.Time, error) {
	if r.Name == "" {
		return time.Time{}, &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	if len(r.Name) > 255 {
		return time.Time{}, &ValidationError{Field: "name", Message: "name must be at most 255 characters"}
	}
	birthdate, err := time.Parse("2006-01-02", r.Birthdate)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "birthdate",
			Value:   r.Birthdate,
			Message: "invalid birthdate, expected YYYY-MM-DD",
		}
	}
	return birthdate, nil
}

// CreateSensorRequest is the payload for POST /api/v1/sensors/{sensor_id}.
type CreateSensorRequest struct {
	Unit string `json:"unit"`
}

// Validate checks the unit constraint.
func (r *CreateSensorRequest) Validate() error {
	if r.Unit == "" {
		return &ValidationError{Field: "unit", Message: "unit must not be empty"}
	}
	if len(r.Unit) > 10 {
		return &ValidationError{Field: "unit", Message: "unit must be at most 10 characters"}
	}
	return nil
}

// CreateMeasurementRequest is the payload for POST /api/v1/measurements.
// Timestamp crosses the boundary as numeric epoch seconds.
type CreateMeasurementRequest struct {
	SensorID  string   `json:"sensor_id"`
	CowID     string   `json:"cow_id"`
	Timestamp float64  `json:"timestamp"`
	Value     *float64 `json:"value"`
}

// Validate checks required references; the timestamp is converted
// separately via EpochToTime.
func (r *CreateMeasurementRequest) Validate() error {
	if r.SensorID == "" {
		return &ValidationError{Field: "sensor_id", Message: "sensor_id is required"}
	}
	if r.CowID == "" {
		return &ValidationError{Field: "cow_id", Message: "cow_id is required"}
	}
	return nil
}

// EpochToTime converts epoch seconds to a UTC instant. Non-positive,
// non-finite, or out-of-range values are rejected.
func EpochToTime(seconds float64) (time.Time, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return time.Time{}, &ValidationError{Field: "timestamp", Message: "invalid timestamp"}
	}
	sec, frac := math.Modf(seconds)
	t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
	if t.Year() > 9999 {
		return time.Time{}, &ValidationError{Field: "timestamp", Message: "invalid timestamp"}
	}
	return t, nil
}

// ValidationError represents a malformed-input error surfaced as a
// bad request at the API boundary.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}
