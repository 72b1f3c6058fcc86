package models

import (
	"time"
)

// WeightStatusRow is one row of the weight status report: per cow, the
// latest valid weight as of the report date, its trailing 30-day
// average, and derived freshness/health flags. Cows with no qualifying
// measurements still appear with nil measurement fields.
type WeightStatusRow struct {
	CowID          string     `db:"id"`
	CowName        string     `db:"name"`
	LastMeasuredAt *time.Time `db:"last_measured_at"`
	LastWeight     *float64   `db:"last_weight"`
	Avg30Day       *float64   `db:"previous_30_day_weight_avg"`
	DataStatus     string     `db:"data_status"`
	PotentiallyIll bool       `db:"potentially_ill"`
}

// Weight report data statuses.
const (
	DataStatusNoData = "No Data"
	DataStatusStale  = "Stale Data (>3 days)"
	DataStatusActive = "Active"
)

// MilkProductionRow is one row of the milk production report: summed
// valid liter measurements for a (cow, calendar day) pair. Days with
// no qualifying measurements produce no row.
type MilkProductionRow struct {
	CowID          string    `db:"id"`
	Day            time.Time `db:"day"`
	MilkProduction float64   `db:"milk_production"`
}
