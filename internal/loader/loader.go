package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Result summarizes a loader run.
type Result struct {
	TotalRows      int
	SuccessfulRows int64
	FailedRows     int64
	Duration       time.Duration
}

// Loader replays parquet rows against the HTTP API. Dimension rows
// (cows, sensors) are loaded before measurement facts so foreign key
// lookups succeed.
type Loader struct {
	apiURL      string
	concurrency int
	dryRun      bool
	client      *http.Client
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewLoader creates a loader targeting apiURL (including the /api/v1
// prefix) with at most concurrency in-flight requests.
func NewLoader(apiURL string, concurrency int, dryRun bool, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{
		apiURL:      strings.TrimRight(apiURL, "/"),
		concurrency: concurrency,
		dryRun:      dryRun,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: concurrency,
			},
		},
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Run loads the batch in three phases: cows, sensors, measurements.
func (l *Loader) Run(ctx context.Context, batch *Batch) (*Result, error) {
	start := time.Now()

	result := &Result{
		TotalRows: len(batch.Cows) + len(batch.Sensors) + len(batch.Measurements),
	}

	l.logger.Info(ctx, "[LOADER_START] Loading cows", logging.Fields{
		"count": len(batch.Cows),
	})
	l.loadCows(ctx, batch.Cows, result)

	l.logger.Info(ctx, "[LOADER_PHASE] Loading sensors", logging.Fields{
		"count": len(batch.Sensors),
	})
	l.loadSensors(ctx, batch.Sensors, result)

	l.logger.Info(ctx, "[LOADER_PHASE] Loading measurements", logging.Fields{
		"count": len(batch.Measurements),
	})
	l.loadMeasurements(ctx, batch.Measurements, result)

	result.Duration = time.Since(start)

	l.logger.Info(ctx, "[LOADER_COMPLETE] Load finished", logging.Fields{
		"total_rows":       result.TotalRows,
		"successful_rows":  result.SuccessfulRows,
		"failed_rows":      result.FailedRows,
		"duration_seconds": result.Duration.Seconds(),
	})

	return result, nil
}

func (l *Loader) loadCows(ctx context.Context, rows []CowRow, result *Result) {
	sem := make(chan struct{}, l.concurrency)
	var wg sync.WaitGroup

	for _, row := range rows {
		wg.Add(1)
		sem <- struct{}{}

		go func(row CowRow) {
			defer wg.Done()
			defer func() { <-sem }()

			payload := map[string]interface{}{
				"name":      row.Name,
				"birthdate": row.Birthdate,
			}
			l.postRow(ctx, "cows", fmt.Sprintf("%s/cows/%s", l.apiURL, row.ID), payload, result)
		}(row)
	}

	wg.Wait()
}

func (l *Loader) loadSensors(ctx context.Context, rows []SensorRow, result *Result) {
	sem := make(chan struct{}, l.concurrency)
	var wg sync.WaitGroup

	for _, row := range rows {
		wg.Add(1)
		sem <- struct{}{}

		go func(row SensorRow) {
			defer wg.Done()
			defer func() { <-sem }()

			payload := map[string]interface{}{
				"unit": row.Unit,
			}
			l.postRow(ctx, "sensors", fmt.Sprintf("%s/sensors/%s", l.apiURL, row.ID), payload, result)
		}(row)
	}

	wg.Wait()
}

func (l *Loader) loadMeasurements(ctx context.Context, rows []MeasurementRow, result *Result) {
	sem := make(chan struct{}, l.concurrency)
	var wg sync.WaitGroup

	total := len(rows)
	reportEvery := total / 100
	if reportEvery < 1 {
		reportEvery = 1
	}
	var completed int64

	for _, row := range rows {
		wg.Add(1)
		sem <- struct{}{}

		go func(row MeasurementRow) {
			defer wg.Done()
			defer func() { <-sem }()

			payload := map[string]interface{}{
				"sensor_id": row.SensorID,
				"cow_id":    row.CowID,
				"timestamp": row.Timestamp,
				"value":     row.Value,
			}
			l.postRow(ctx, "measurements", l.apiURL+"/measurements", payload, result)

			done := atomic.AddInt64(&completed, 1)
			if done%int64(reportEvery) == 0 || done == int64(total) {
				l.logger.Info(ctx, "[LOADER_PROGRESS] Measurements progress", logging.Fields{
					"completed": done,
					"total":     total,
					"succeeded": atomic.LoadInt64(&result.SuccessfulRows),
					"failed":    atomic.LoadInt64(&result.FailedRows),
				})
			}
		}(row)
	}

	wg.Wait()
}

// postRow sends one row, retrying transient failures (network errors
// and 5xx responses) with linear backoff. 4xx responses are permanent:
// the row is counted failed without retry.
func (l *Loader) postRow(ctx context.Context, entity, url string, payload map[string]interface{}, result *Result) {
	if l.dryRun {
		body, _ := json.Marshal(payload)
		l.logger.Info(ctx, "[LOADER_DRY_RUN] Would POST row", logging.Fields{
			"url":     url,
			"payload": string(body),
		})
		atomic.AddInt64(&result.SuccessfulRows, 1)
		l.metrics.RecordLoaderRow(entity, "success")
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		l.logger.Error(ctx, "[LOADER_ERROR] Failed to encode row", logging.Fields{
			"entity": entity,
			"url":    url,
		}, err)
		atomic.AddInt64(&result.FailedRows, 1)
		l.metrics.RecordLoaderRow(entity, "failure")
		return
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := l.send(ctx, url, body)
		if err == nil && status < 500 {
			if status < 300 {
				atomic.AddInt64(&result.SuccessfulRows, 1)
				l.metrics.RecordLoaderRow(entity, "success")
			} else {
				l.logger.Warn(ctx, "[LOADER_REJECTED] Row rejected by API", logging.Fields{
					"entity":  entity,
					"url":     url,
					"status":  status,
					"payload": string(body),
				})
				atomic.AddInt64(&result.FailedRows, 1)
				l.metrics.RecordLoaderRow(entity, "failure")
			}
			return
		}

		if attempt == maxAttempts {
			fields := logging.Fields{
				"entity":   entity,
				"url":      url,
				"attempts": attempt,
			}
			if err == nil {
				fields["status"] = status
			}
			l.logger.Error(ctx, "[LOADER_ERROR] Row failed after retries", fields, err)
			atomic.AddInt64(&result.FailedRows, 1)
			l.metrics.RecordLoaderRow(entity, "failure")
			return
		}

		l.metrics.LoaderRetriesTotal.Inc()

		select {
		case <-ctx.Done():
			atomic.AddInt64(&result.FailedRows, 1)
			l.metrics.RecordLoaderRow(entity, "failure")
			return
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
}

func (l *Loader) send(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
