package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"herd-platform/pkg/logging"
)

// WeightReport handles GET /api/v1/reports/weights. Renders the weight
// status report as CSV for the given date (YYYY-MM-DD), defaulting to
// today.
func (h *HerdHandler) WeightReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/v1/reports/weights").Observe(time.Since(startTime).Seconds())
	}()

	reportDate := time.Now().UTC().Truncate(24 * time.Hour)
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			h.sendError(w, r, "invalid date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		reportDate = parsed
	}

	var buf bytes.Buffer
	if err := h.reportService.WriteWeightStatusCSV(ctx, &buf, reportDate); err != nil {
		h.logger.Error(ctx, "[API_WEIGHT_REPORT_ERROR] Failed to generate weight report", logging.Fields{
			"report_date": reportDate.Format("2006-01-02"),
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/v1/reports/weights")
		h.sendError(w, r, "failed to generate report", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/reports/weights", "GET", "200")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=report_weights_%s.csv", reportDate.Format("20060102")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// MilkReport handles GET /api/v1/reports/milk. Renders daily milk
// production per cow as CSV between start_date and end_date
// (YYYY-MM-DD); omitted bounds default to an effectively unbounded
// range.
func (h *HerdHandler) MilkReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/v1/reports/milk").Observe(time.Since(startTime).Seconds())
	}()

	var startDate, endDate time.Time

	if s := r.URL.Query().Get("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.sendError(w, r, "invalid start_date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		startDate = parsed
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.sendError(w, r, "invalid end_date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		endDate = parsed
	}

	var buf bytes.Buffer
	if err := h.reportService.WriteMilkProductionCSV(ctx, &buf, startDate, endDate); err != nil {
		h.logger.Error(ctx, "[API_MILK_REPORT_ERROR] Failed to generate milk report", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/v1/reports/milk")
		h.sendError(w, r, "failed to generate report", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/reports/milk", "GET", "200")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=report_milk.csv")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
