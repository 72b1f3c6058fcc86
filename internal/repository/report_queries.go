package repository

import (
	"context"
	"fmt"
	"time"

	"herd-platform/internal/models"
	"herd-platform/pkg/logging"
)

// WeightStatusReport computes, for every cow, the most recent valid
// weight measurement as of reportDate together with its trailing
// 30-day average and the derived freshness/health flags. Cows without
// qualifying measurements are kept via the left join and come back as
// "No Data". Rows are ordered by cow name.
func (r *herdRepository) WeightStatusReport(ctx context.Context, reportDate time.Time) ([]*models.WeightStatusRow, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.ReportDuration.WithLabelValues("weights").Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_WEIGHT_REPORT] Weight status report computed", logging.Fields{
			"report_date": reportDate.Format("2006-01-02"),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	// The 30-day average is a moving window anchored at each
	// measurement's own timestamp; the outer join then picks the
	// window value aligned to the most recent row (rn = 1).
	query := `
		WITH cow_weight AS (
			SELECT
				m.cow_id,
				m.value,
				m.timestamp,
				ROW_NUMBER() OVER (PARTITION BY m.cow_id ORDER BY m.timestamp DESC) AS rn,
				AVG(m.value) OVER (
					PARTITION BY m.cow_id
					ORDER BY m.timestamp
					RANGE BETWEEN INTERVAL '30 days' PRECEDING AND CURRENT ROW
				) AS previous_30_day_weight_avg
			FROM measurements m
			JOIN sensors s ON m.sensor_id = s.id
			WHERE m.is_valid
			  AND s.unit = $2
			  AND m.timestamp <= $1
		)
		SELECT
			c.id,
			c.name,
			cw.timestamp AS last_measured_at,
			cw.value AS last_weight,
			cw.previous_30_day_weight_avg,
			CASE
				WHEN cw.value IS NULL THEN 'No Data'
				WHEN cw.timestamp < ($1::timestamptz - INTERVAL '3 days') THEN 'Stale Data (>3 days)'
				ELSE 'Active'
			END AS data_status,
			CASE
				WHEN cw.value IS NULL OR cw.previous_30_day_weight_avg IS NULL THEN false
				WHEN cw.value < (cw.previous_30_day_weight_avg * 0.95) THEN true
				ELSE false
			END AS potentially_ill
		FROM cows c
		LEFT JOIN cow_weight cw ON c.id = cw.cow_id AND cw.rn = 1
		ORDER BY c.name
	`

	rows := []*models.WeightStatusRow{}
	err := r.db.SelectContext(ctx, "weight_status_report", &rows, query, reportDate, models.UnitKilograms)
	if err != nil {
		r.metrics.RecordDBError("weight_report_error")
		return nil, fmt.Errorf("failed to compute weight status report: %w", err)
	}

	for _, row := range rows {
		if row.LastMeasuredAt != nil {
			utc := row.LastMeasuredAt.UTC()
			row.LastMeasuredAt = &utc
		}
	}

	return rows, nil
}

// MilkProductionReport sums valid liter measurements per (cow,
// calendar day) within [startDate, endDate]. Days without qualifying
// measurements produce no row. Ordered by cow id descending, then day
// descending.
func (r *herdRepository) MilkProductionReport(ctx context.Context, startDate, endDate time.Time) ([]*models.MilkProductionRow, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.ReportDuration.WithLabelValues("milk").Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_MILK_REPORT] Milk production report computed", logging.Fields{
			"start_date":  startDate.Format("2006-01-02"),
			"end_date":    endDate.Format("2006-01-02"),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	query := `
		SELECT
			c.id,
			m.timestamp::date AS day,
			SUM(m.value) AS milk_production
		FROM cows c
		JOIN measurements m ON m.cow_id = c.id
		JOIN sensors s ON m.sensor_id = s.id
		WHERE m.is_valid
		  AND s.unit = $3
		  AND m.timestamp BETWEEN $1 AND $2
		GROUP BY c.id, m.timestamp::date
		ORDER BY c.id DESC, day DESC
	`

	rows := []*models.MilkProductionRow{}
	err := r.db.SelectContext(ctx, "milk_production_report", &rows, query, startDate, endDate, models.UnitLiters)
	if err != nil {
		r.metrics.RecordDBError("milk_report_error")
		return nil, fmt.Errorf("failed to compute milk production report: %w", err)
	}

	return rows, nil
}
