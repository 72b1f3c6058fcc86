package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"herd-platform/internal/repository"
	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

// Default milk report range when callers omit the bounds: effectively
// unbounded.
var (
	milkRangeStart = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	milkRangeEnd   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ReportService runs the two analytical report queries and renders
// them as CSV with a header row.
type ReportService struct {
	repo    repository.HerdRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewReportService creates a new report service
func NewReportService(repo repository.HerdRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ReportService {
	return &ReportService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// WriteWeightStatusCSV renders the weight status report for reportDate
// to w.
func (s *ReportService) WriteWeightStatusCSV(ctx context.Context, w io.Writer, reportDate time.Time) error {
	rows, err := s.repo.WeightStatusReport(ctx, reportDate)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"id", "name", "last_measured_at", "last_weight",
		"previous_30_day_weight_avg", "data_status", "potentially_ill",
	}); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.CowID,
			row.CowName,
			formatOptionalTime(row.LastMeasuredAt),
			formatOptionalFloat(row.LastWeight),
			formatOptionalFloat(row.Avg30Day),
			row.DataStatus,
			strconv.FormatBool(row.PotentiallyIll),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}

	s.logger.Info(ctx, "[REPORT_WEIGHTS] Weight status report generated", logging.Fields{
		"report_date": reportDate.Format("2006-01-02"),
		"row_count":   len(rows),
	})

	return nil
}

// WriteMilkProductionCSV renders the milk production report over
// [startDate, endDate] to w. Zero-valued bounds take the unbounded
// defaults.
func (s *ReportService) WriteMilkProductionCSV(ctx context.Context, w io.Writer, startDate, endDate time.Time) error {
	if startDate.IsZero() {
		startDate = milkRangeStart
	}
	if endDate.IsZero() {
		endDate = milkRangeEnd
	}

	rows, err := s.repo.MilkProductionReport(ctx, startDate, endDate)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "day", "milk_production"}); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.CowID,
			row.Day.Format("2006-01-02"),
			strconv.FormatFloat(row.MilkProduction, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}

	s.logger.Info(ctx, "[REPORT_MILK] Milk production report generated", logging.Fields{
		"start_date": startDate.Format("2006-01-02"),
		"end_date":   endDate.Format("2006-01-02"),
		"row_count":  len(rows),
	})

	return nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
