package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/storebenchoor/pkg/report"
	"github.com/ethpandaops/storebenchoor/pkg/store"
)

func init() {
	color.NoColor = true
}

func result(provider, op string, byteSize int64, throughput float64) store.Result {
	return store.Result{
		Provider:       provider,
		Operation:      op,
		ByteSize:       byteSize,
		FileCount:      10,
		ThroughputMBps: throughput,
		OpsPerSec:      throughput * 10,
		AvgLatencyMs:   5,
	}
}

func TestScores(t *testing.T) {
	results := []store.Result{
		result("fast", "WRITE", 1024, 200),
		result("fast", "WRITE-P", 1024, 400),
		result("fast", "READ", 1024, 300),
		result("fast", "READ-P", 1024, 600),
		result("slow", "WRITE", 1024, 100),
		result("slow", "WRITE-P", 1024, 200),
		result("slow", "READ", 1024, 150),
		result("slow", "READ-P", 1024, 300),
	}

	scores := report.Scores(results)

	// The best provider in every operation scores a full 100.
	assert.InDelta(t, 100, scores["fast"], 0.001)

	// Half the throughput across the board earns half the points.
	assert.InDelta(t, 50, scores["slow"], 0.001)
}

func TestScores_FailedCellsExcluded(t *testing.T) {
	failed := result("broken", "WRITE", 1024, 0)
	failed.Failed = true

	results := []store.Result{
		result("ok", "WRITE", 1024, 100),
		failed,
	}

	scores := report.Scores(results)

	assert.InDelta(t, 25, scores["ok"], 0.001)
	assert.Zero(t, scores["broken"])
}

func TestWriteComparison(t *testing.T) {
	var buf bytes.Buffer

	results := []store.Result{
		result("minio", "WRITE", 1024, 50),
		result("disk", "WRITE", 1024, 100),
	}

	report.NewReporter(&buf).WriteComparison(results)
	out := buf.String()

	assert.Contains(t, out, "SEQUENTIAL WRITE")
	assert.Contains(t, out, "File Size: 1KiB")
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "-50.0%")
	assert.Contains(t, out, "OVERALL WINNER: disk")
}

func TestWriteComparison_SingleProvider(t *testing.T) {
	var buf bytes.Buffer

	report.NewReporter(&buf).WriteComparison([]store.Result{
		result("minio", "WRITE", 1024, 50),
	})

	assert.Contains(t, buf.String(), "at least two providers")
}

func TestWriteRunResults_FailedCell(t *testing.T) {
	var buf bytes.Buffer

	run := &store.Run{
		ID:        1,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Profile:   "quick",
		Workers:   10,
		Repeats:   3,
		Status:    "success",
	}

	failed := result("minio", "READ", 1024, 0)
	failed.Failed = true
	failed.Failures = 30

	report.NewReporter(&buf).WriteRunResults(run, []store.Result{
		result("minio", "WRITE", 1024, 50),
		failed,
	})
	out := buf.String()

	assert.Contains(t, out, "Run #1")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "50.00 MB/s")
}

func TestWriteRunList(t *testing.T) {
	var buf bytes.Buffer

	runs := []store.Run{
		{ID: 2, Timestamp: time.Now(), Name: "nightly", Profile: "full", Status: "success"},
		{ID: 1, Timestamp: time.Now().Add(-time.Hour), Name: "smoke", Profile: "quick", Status: "partial_failure"},
	}

	report.NewReporter(&buf).WriteRunList(runs)
	out := buf.String()

	require.Contains(t, out, "nightly")
	assert.Contains(t, out, "smoke")
	assert.Contains(t, out, "partial_failure")
}

func TestWriteProviderStats(t *testing.T) {
	var buf bytes.Buffer

	report.NewReporter(&buf).WriteProviderStats([]store.ProviderStats{
		{Provider: "minio", Cells: 12, AvgThroughputMBps: 120.5, AvgLatencyMs: 3.2, TotalFailures: 1},
	})
	out := buf.String()

	assert.Contains(t, out, "minio")
	assert.Contains(t, out, "120.50 MB/s")
}
