package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"

	"herd-platform/internal/models"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation",
			err:  &pq.Error{Code: "23505", Constraint: "cows_pkey"},
			want: true,
		},
		{
			name: "wrapped unique violation",
			err:  fmt.Errorf("insert failed: %w", &pq.Error{Code: "23505"}),
			want: true,
		},
		{
			name: "foreign key violation is not unique",
			err:  &pq.Error{Code: "23503"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForeignKeyTarget(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantResource string
		wantOK       bool
	}{
		{
			name:         "sensor foreign key",
			err:          &pq.Error{Code: "23503", Constraint: "measurements_sensor_id_fkey"},
			wantResource: "sensor",
			wantOK:       true,
		},
		{
			name:         "cow foreign key",
			err:          &pq.Error{Code: "23503", Constraint: "measurements_cow_id_fkey"},
			wantResource: "cow",
			wantOK:       true,
		},
		{
			name:   "unique violation not a foreign key",
			err:    &pq.Error{Code: "23505"},
			wantOK: false,
		},
		{
			name:   "plain error",
			err:    errors.New("timeout"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource, ok := foreignKeyTarget(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("foreignKeyTarget() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && resource != tt.wantResource {
				t.Errorf("foreignKeyTarget() resource = %q, want %q", resource, tt.wantResource)
			}
		})
	}
}

func TestNormalizeMeasurement(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	m := &models.Measurement{
		Timestamp: time.Date(2024, 6, 10, 10, 0, 0, 0, loc),
		CreatedAt: time.Date(2024, 6, 10, 10, 5, 0, 0, loc),
	}

	normalizeMeasurement(m)

	if m.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", m.Timestamp.Location())
	}
	if m.Timestamp.Hour() != 8 {
		t.Errorf("Timestamp hour = %d, want 8 (instant preserved)", m.Timestamp.Hour())
	}
	if m.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", m.CreatedAt.Location())
	}
}

func TestErrorTypes(t *testing.T) {
	nfe := &NotFoundError{Resource: "cow", ID: "cow-1"}
	if nfe.Error() != "cow not found: cow-1" {
		t.Errorf("NotFoundError.Error() = %q", nfe.Error())
	}
	if nfe.IsTransient() {
		t.Error("NotFoundError should not be transient")
	}

	ce := &ConflictError{Resource: "sensor", ID: "sensor-1"}
	if ce.Error() != "sensor already exists: sensor-1" {
		t.Errorf("ConflictError.Error() = %q", ce.Error())
	}
	if ce.IsTransient() {
		t.Error("ConflictError should not be transient")
	}
}
