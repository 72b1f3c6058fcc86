package repository

import (
	"context"

	"herd-platform/internal/models"
	"herd-platform/pkg/database"
)

// latestResolver computes the latest-per-unit snapshot for one cow:
// the maximum-timestamp measurement for each distinct sensor unit the
// cow has ever been measured with. Validity is deliberately ignored so
// consumers can see invalid readings and their error reason. A cow
// with no measurements yields an empty result, not an error.
//
// Ties on timestamp resolve to whichever maximal row the store
// returns first; no ordering beyond the timestamp is promised.
type latestResolver interface {
	LatestPerUnit(ctx context.Context, cowID string) ([]*models.Measurement, error)
}

// windowLatestResolver answers the greatest-1-per-group question in a
// single declarative query: rank measurements per unit by timestamp
// descending and keep rank 1. One round trip regardless of how many
// units the cow has.
type windowLatestResolver struct {
	db *database.PostgresDB
}

func (w *windowLatestResolver) LatestPerUnit(ctx context.Context, cowID string) ([]*models.Measurement, error) {
	query := `
		SELECT id, sensor_id, cow_id, timestamp, value,
		       is_valid, validation_error, created_at, unit
		FROM (
			SELECT m.id, m.sensor_id, m.cow_id, m.timestamp, m.value,
			       m.is_valid, m.validation_error, m.created_at, s.unit,
			       ROW_NUMBER() OVER (PARTITION BY s.unit ORDER BY m.timestamp DESC) AS rn
			FROM measurements m
			JOIN sensors s ON m.sensor_id = s.id
			WHERE m.cow_id = $1
		) ranked
		WHERE rn = 1
		ORDER BY unit
	`

	measurements := []*models.Measurement{}
	err := w.db.SelectContext(ctx, "latest_per_unit_window", &measurements, query, cowID)
	if err != nil {
		return nil, err
	}

	return measurements, nil
}

// loopLatestResolver is the fallback for stores without ranking window
// functions: collect the distinct units first, then fetch the newest
// measurement for each. Correctness-equivalent to the window variant
// at the cost of O(distinct units) round trips.
type loopLatestResolver struct {
	db *database.PostgresDB
}

func (l *loopLatestResolver) LatestPerUnit(ctx context.Context, cowID string) ([]*models.Measurement, error) {
	unitQuery := `
		SELECT DISTINCT s.unit
		FROM sensors s
		JOIN measurements m ON m.sensor_id = s.id
		WHERE m.cow_id = $1
		ORDER BY s.unit
	`

	var units []string
	err := l.db.SelectContext(ctx, "latest_per_unit_units", &units, unitQuery, cowID)
	if err != nil {
		return nil, err
	}

	latestQuery := `
		SELECT m.id, m.sensor_id, m.cow_id, m.timestamp, m.value,
		       m.is_valid, m.validation_error, m.created_at, s.unit
		FROM measurements m
		JOIN sensors s ON m.sensor_id = s.id
		WHERE m.cow_id = $1 AND s.unit = $2
		ORDER BY m.timestamp DESC
		LIMIT 1
	`

	measurements := make([]*models.Measurement, 0, len(units))
	for _, unit := range units {
		var m models.Measurement
		err := l.db.GetContext(ctx, "latest_per_unit_pick", &m, latestQuery, cowID, unit)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, &m)
	}

	return measurements, nil
}
