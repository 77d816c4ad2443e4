package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/storebenchoor/pkg/bench"
	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/store"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func testRun(name string, ts time.Time) *store.Run {
	return &store.Run{
		Timestamp: ts,
		Name:      name,
		Profile:   "default",
		Workers:   10,
		Repeats:   3,
		Status:    "running",
	}
}

func testResult(provider, op string, throughput float64) *store.Result {
	return &store.Result{
		Provider:       provider,
		ProviderKind:   "s3",
		Operation:      op,
		ByteSize:       1024,
		FileCount:      100,
		Repeats:        3,
		TotalBytes:     3 * 100 * 1024,
		Duration:       1.5,
		ThroughputMBps: throughput,
		OpsPerSec:      200,
		AvgLatencyMs:   5,
		MinLatencyMs:   1,
		MaxLatencyMs:   20,
	}
}

func TestStore_CreateAndGetRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("nightly", time.Now())
	require.NoError(t, s.CreateRun(ctx, run))
	require.NotZero(t, run.ID)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Name)
	assert.Equal(t, "default", got.Profile)
	assert.Equal(t, "running", got.Status)

	_, err = s.GetRun(ctx, run.ID+100)
	require.Error(t, err)
}

func TestStore_FinishRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("nightly", time.Now())
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.FinishRun(ctx, run.ID, "success"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "success", got.Status)
}

func TestStore_GetRunsOrderAndLimit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		run := testRun("run", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.CreateRun(ctx, run))
	}

	runs, err := s.GetRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first.
	assert.True(t, runs[0].Timestamp.After(runs[2].Timestamp))

	limited, err := s.GetRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	latest, err := s.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, latest.ID)
}

func TestStore_AddAndGetResults(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("nightly", time.Now())
	require.NoError(t, s.CreateRun(ctx, run))

	results := []*store.Result{
		testResult("minio", "WRITE", 120.5),
		testResult("minio", "READ", 240.0),
		testResult("disk", "WRITE", 900.0),
	}
	require.NoError(t, s.AddResults(ctx, run.ID, results))

	got, err := s.GetRunResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "minio", got[0].Provider)
	assert.Equal(t, "WRITE", got[0].Operation)
	assert.InDelta(t, 120.5, got[0].ThroughputMBps, 0.001)
	assert.Equal(t, run.ID, got[0].RunID)

	minio, err := s.GetProviderResults(ctx, "minio", 0)
	require.NoError(t, err)
	assert.Len(t, minio, 2)

	limited, err := s.GetProviderResults(ctx, "minio", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_ResultFromBench(t *testing.T) {
	r := &bench.Result{
		Provider:       "minio",
		ProviderKind:   "s3",
		Operation:      bench.OpWriteParallel,
		ByteSize:       10240,
		FileCount:      50,
		Repeats:        3,
		TotalBytes:     3 * 50 * 10240,
		ThroughputMBps: 55.5,
		Failures:       1,
	}

	row := store.ResultFromBench(7, r)

	assert.Equal(t, uint(7), row.RunID)
	assert.Equal(t, "WRITE-P", row.Operation)
	assert.Equal(t, int64(10240), row.ByteSize)
	assert.InDelta(t, 55.5, row.ThroughputMBps, 0.001)
	assert.Equal(t, 1, row.Failures)
}

func TestStore_ProviderStats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("nightly", time.Now())
	require.NoError(t, s.CreateRun(ctx, run))

	failed := testResult("minio", "READ-P", 0)
	failed.Failed = true
	failed.Failures = 100

	require.NoError(t, s.AddResults(ctx, run.ID, []*store.Result{
		testResult("minio", "WRITE", 100),
		testResult("minio", "READ", 200),
		failed,
		testResult("disk", "WRITE", 800),
	}))

	stats, err := s.GetProviderStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Ordered by provider name.
	assert.Equal(t, "disk", stats[0].Provider)
	assert.InDelta(t, 800, stats[0].AvgThroughputMBps, 0.001)

	assert.Equal(t, "minio", stats[1].Provider)
	assert.Equal(t, int64(3), stats[1].Cells)
	assert.Equal(t, int64(100), stats[1].TotalFailures)

	// The failed cell does not drag the average down.
	assert.InDelta(t, 150, stats[1].AvgThroughputMBps, 0.001)
}

func TestStore_DeleteRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("nightly", time.Now())
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.AddResults(ctx, run.ID, []*store.Result{
		testResult("minio", "WRITE", 100),
	}))

	require.NoError(t, s.DeleteRun(ctx, run.ID))

	_, err := s.GetRun(ctx, run.ID)
	require.Error(t, err)

	results, err := s.GetRunResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_UnsupportedDriver(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, &config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, s.Start(context.Background()))
}
