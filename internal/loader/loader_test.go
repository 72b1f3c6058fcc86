package loader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

// One collector for the whole test package; promauto panics on
// duplicate registration.
var testMetrics = metrics.NewCollector("herd_loader_test")

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.FatalLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestLoader_Run_Success(t *testing.T) {
	var mu sync.Mutex
	requests := make(map[string][]map[string]interface{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		requests[r.URL.Path] = append(requests[r.URL.Path], payload)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	batch := &Batch{
		Cows: []CowRow{
			{ID: "cow-1", Name: "Annabelle", Birthdate: "2019-07-01"},
		},
		Sensors: []SensorRow{
			{ID: "sensor-1", Unit: "L"},
		},
		Measurements: []MeasurementRow{
			{SensorID: "sensor-1", CowID: "cow-1", Timestamp: 1700000000, Value: floatPtr(12.5)},
			{SensorID: "sensor-1", CowID: "cow-1", Timestamp: 1700000100, Value: nil},
		},
	}

	l := NewLoader(server.URL, 4, false, newTestLogger(), testMetrics)
	result, err := l.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TotalRows != 4 {
		t.Errorf("TotalRows = %d, want 4", result.TotalRows)
	}
	if result.SuccessfulRows != 4 {
		t.Errorf("SuccessfulRows = %d, want 4", result.SuccessfulRows)
	}
	if result.FailedRows != 0 {
		t.Errorf("FailedRows = %d, want 0", result.FailedRows)
	}

	if got := len(requests["/cows/cow-1"]); got != 1 {
		t.Errorf("cow posts = %d, want 1", got)
	}
	if got := len(requests["/sensors/sensor-1"]); got != 1 {
		t.Errorf("sensor posts = %d, want 1", got)
	}
	if got := len(requests["/measurements"]); got != 2 {
		t.Errorf("measurement posts = %d, want 2", got)
	}

	// Null values survive as explicit JSON nulls
	var sawNull bool
	for _, payload := range requests["/measurements"] {
		if v, ok := payload["value"]; ok && v == nil {
			sawNull = true
		}
	}
	if !sawNull {
		t.Error("expected one measurement payload with null value")
	}
}

func TestLoader_Run_RetriesTransientFailures(t *testing.T) {
	var attempts int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	batch := &Batch{
		Cows: []CowRow{{ID: "cow-1", Name: "Annabelle", Birthdate: "2019-07-01"}},
	}

	l := NewLoader(server.URL, 1, false, newTestLogger(), testMetrics)
	result, err := l.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if atomic.LoadInt64(&attempts) != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if result.SuccessfulRows != 1 || result.FailedRows != 0 {
		t.Errorf("result = %+v, want one success after retries", result)
	}
}

func TestLoader_Run_ExhaustsRetries(t *testing.T) {
	var attempts int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	batch := &Batch{
		Sensors: []SensorRow{{ID: "sensor-1", Unit: "L"}},
	}

	l := NewLoader(server.URL, 1, false, newTestLogger(), testMetrics)
	result, err := l.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if atomic.LoadInt64(&attempts) != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if result.FailedRows != 1 || result.SuccessfulRows != 0 {
		t.Errorf("result = %+v, want one failure", result)
	}
}

func TestLoader_Run_ClientErrorNotRetried(t *testing.T) {
	var attempts int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	batch := &Batch{
		Cows: []CowRow{{ID: "cow-1", Name: "Annabelle", Birthdate: "2019-07-01"}},
	}

	l := NewLoader(server.URL, 1, false, newTestLogger(), testMetrics)
	result, err := l.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if atomic.LoadInt64(&attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is permanent)", attempts)
	}
	if result.FailedRows != 1 {
		t.Errorf("FailedRows = %d, want 1", result.FailedRows)
	}
}

func TestLoader_Run_DryRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run must not send HTTP requests")
	}))
	defer server.Close()

	batch := &Batch{
		Cows:    []CowRow{{ID: "cow-1", Name: "Annabelle", Birthdate: "2019-07-01"}},
		Sensors: []SensorRow{{ID: "sensor-1", Unit: "L"}},
		Measurements: []MeasurementRow{
			{SensorID: "sensor-1", CowID: "cow-1", Timestamp: 1700000000, Value: floatPtr(1)},
		},
	}

	l := NewLoader(server.URL, 2, true, newTestLogger(), testMetrics)
	result, err := l.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.SuccessfulRows != 3 || result.FailedRows != 0 {
		t.Errorf("result = %+v, want all rows counted successful", result)
	}
}
