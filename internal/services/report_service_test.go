package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"herd-platform/internal/models"
)

func TestWriteWeightStatusCSV(t *testing.T) {
	measuredAt := time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC)

	repo := &fakeRepo{
		weightRptFn: func(ctx context.Context, reportDate time.Time) ([]*models.WeightStatusRow, error) {
			return []*models.WeightStatusRow{
				{
					CowID:          "cow-1",
					CowName:        "Annabelle",
					LastMeasuredAt: timePtr(measuredAt),
					LastWeight:     floatPtr(380),
					Avg30Day:       floatPtr(410),
					DataStatus:     models.DataStatusActive,
					PotentiallyIll: true,
				},
				{
					CowID:          "cow-2",
					CowName:        "Bella",
					LastMeasuredAt: timePtr(measuredAt),
					LastWeight:     floatPtr(395),
					Avg30Day:       floatPtr(410),
					DataStatus:     models.DataStatusStale,
					PotentiallyIll: false,
				},
				{
					CowID:          "cow-3",
					CowName:        "Clara",
					LastMeasuredAt: nil,
					LastWeight:     nil,
					Avg30Day:       nil,
					DataStatus:     models.DataStatusNoData,
					PotentiallyIll: false,
				},
			}, nil
		},
	}

	svc := NewReportService(repo, newTestLogger(), testMetrics)

	var buf bytes.Buffer
	reportDate := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	if err := svc.WriteWeightStatusCSV(context.Background(), &buf, reportDate); err != nil {
		t.Fatalf("WriteWeightStatusCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %q", len(lines), buf.String())
	}

	wantHeader := "id,name,last_measured_at,last_weight,previous_30_day_weight_avg,data_status,potentially_ill"
	if lines[0] != wantHeader {
		t.Errorf("header = %q, want %q", lines[0], wantHeader)
	}

	wantRows := []string{
		`cow-1,Annabelle,2024-06-10T08:30:00Z,380,410,Active,true`,
		`cow-2,Bella,2024-06-10T08:30:00Z,395,410,Stale Data (>3 days),false`,
		`cow-3,Clara,,,,No Data,false`,
	}
	for i, want := range wantRows {
		if lines[i+1] != want {
			t.Errorf("row %d = %q, want %q", i, lines[i+1], want)
		}
	}
}

func TestWriteWeightStatusCSV_EmptyReport(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewReportService(repo, newTestLogger(), testMetrics)

	var buf bytes.Buffer
	if err := svc.WriteWeightStatusCSV(context.Background(), &buf, time.Now()); err != nil {
		t.Fatalf("WriteWeightStatusCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Errorf("empty report should still emit the header, got %q", buf.String())
	}
}

func TestWriteMilkProductionCSV(t *testing.T) {
	repo := &fakeRepo{
		milkRptFn: func(ctx context.Context, startDate, endDate time.Time) ([]*models.MilkProductionRow, error) {
			return []*models.MilkProductionRow{
				{CowID: "cow-9", Day: time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), MilkProduction: 31.5},
				{CowID: "cow-9", Day: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), MilkProduction: 28},
				{CowID: "cow-1", Day: time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), MilkProduction: 25.25},
			}, nil
		},
	}

	svc := NewReportService(repo, newTestLogger(), testMetrics)

	var buf bytes.Buffer
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	if err := svc.WriteMilkProductionCSV(context.Background(), &buf, start, end); err != nil {
		t.Fatalf("WriteMilkProductionCSV() error = %v", err)
	}

	want := "id,day,milk_production\n" +
		"cow-9,2024-06-11,31.5\n" +
		"cow-9,2024-06-10,28\n" +
		"cow-1,2024-06-11,25.25\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestWriteMilkProductionCSV_DefaultRange(t *testing.T) {
	var gotStart, gotEnd time.Time

	repo := &fakeRepo{
		milkRptFn: func(ctx context.Context, startDate, endDate time.Time) ([]*models.MilkProductionRow, error) {
			gotStart, gotEnd = startDate, endDate
			return nil, nil
		},
	}

	svc := NewReportService(repo, newTestLogger(), testMetrics)

	var buf bytes.Buffer
	if err := svc.WriteMilkProductionCSV(context.Background(), &buf, time.Time{}, time.Time{}); err != nil {
		t.Fatalf("WriteMilkProductionCSV() error = %v", err)
	}

	if gotStart.Year() != 1900 {
		t.Errorf("default start year = %d, want 1900", gotStart.Year())
	}
	if gotEnd.Year() != 9999 {
		t.Errorf("default end year = %d, want 9999", gotEnd.Year())
	}
}
