package loader

import (
	"fmt"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// CowRow is one row of cows.parquet.
type CowRow struct {
	ID        string `parquet:"id"`
	Name      string `parquet:"name"`
	Birthdate string `parquet:"birthdate"`
}

// SensorRow is one row of sensors.parquet.
type SensorRow struct {
	ID   string `parquet:"id"`
	Unit string `parquet:"unit"`
}

// MeasurementRow is one row of measurements.parquet. Timestamp is epoch
// seconds; Value is absent for null readings.
type MeasurementRow struct {
	SensorID  string   `parquet:"sensor_id"`
	CowID     string   `parquet:"cow_id"`
	Timestamp float64  `parquet:"timestamp"`
	Value     *float64 `parquet:"value,optional"`
}

// Batch holds the fully decoded contents of one input directory.
type Batch struct {
	Cows         []CowRow
	Sensors      []SensorRow
	Measurements []MeasurementRow
}

// ReadBatch reads cows.parquet, sensors.parquet, and
// measurements.parquet from dataDir.
func ReadBatch(dataDir string) (*Batch, error) {
	cows, err := parquet.ReadFile[CowRow](filepath.Join(dataDir, "cows.parquet"))
	if err != nil {
		return nil, fmt.Errorf("reading cows.parquet: %w", err)
	}

	sensors, err := parquet.ReadFile[SensorRow](filepath.Join(dataDir, "sensors.parquet"))
	if err != nil {
		return nil, fmt.Errorf("reading sensors.parquet: %w", err)
	}

	measurements, err := parquet.ReadFile[MeasurementRow](filepath.Join(dataDir, "measurements.parquet"))
	if err != nil {
		return nil, fmt.Errorf("reading measurements.parquet: %w", err)
	}

	return &Batch{
		Cows:         cows,
		Sensors:      sensors,
		Measurements: measurements,
	}, nil
}
