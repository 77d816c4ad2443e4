package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/store"
)

func setupTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	st := store.NewStore(log, &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, st.Start(context.Background()))
	t.Cleanup(func() { _ = st.Stop() })

	s := &server{
		log:   log,
		cfg:   &config.APIConfig{},
		store: st,
	}

	ts := httptest.NewServer(s.buildRouter())
	t.Cleanup(ts.Close)

	return ts, st
}

func seedRun(t *testing.T, st store.Store) *store.Run {
	t.Helper()

	run := &store.Run{
		Timestamp: time.Now(),
		Name:      "nightly",
		Profile:   "default",
		Status:    "success",
	}
	require.NoError(t, st.CreateRun(context.Background(), run))

	require.NoError(t, st.AddResults(context.Background(), run.ID, []*store.Result{
		{
			Provider:       "minio",
			Operation:      "WRITE",
			ByteSize:       1024,
			FileCount:      100,
			ThroughputMBps: 42.5,
		},
	}))

	return run
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)

	defer resp.Body.Close()

	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}

	return resp.StatusCode
}

func TestHandleHealth(t *testing.T) {
	ts, _ := setupTestServer(t)

	var body map[string]string
	status := getJSON(t, ts.URL+"/healthz", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleListRuns(t *testing.T) {
	ts, st := setupTestServer(t)
	seedRun(t, st)
	seedRun(t, st)

	var runs []store.Run
	status := getJSON(t, ts.URL+"/api/v1/runs", &runs)

	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, runs, 2)

	runs = nil
	status = getJSON(t, ts.URL+"/api/v1/runs?limit=1", &runs)

	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, runs, 1)

	status = getJSON(t, ts.URL+"/api/v1/runs?limit=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandleGetRun(t *testing.T) {
	ts, st := setupTestServer(t)
	run := seedRun(t, st)

	var got store.Run
	status := getJSON(t, ts.URL+"/api/v1/runs/1", &got)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, run.Name, got.Name)

	status = getJSON(t, ts.URL+"/api/v1/runs/999", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = getJSON(t, ts.URL+"/api/v1/runs/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandleRunResults(t *testing.T) {
	ts, st := setupTestServer(t)
	seedRun(t, st)

	var results []store.Result
	status := getJSON(t, ts.URL+"/api/v1/runs/1/results", &results)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, results, 1)
	assert.Equal(t, "minio", results[0].Provider)
	assert.InDelta(t, 42.5, results[0].ThroughputMBps, 0.001)

	status = getJSON(t, ts.URL+"/api/v1/runs/999/results", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandleProviderResults(t *testing.T) {
	ts, st := setupTestServer(t)
	seedRun(t, st)

	var results []store.Result
	status := getJSON(t, ts.URL+"/api/v1/providers/minio/results", &results)

	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, results, 1)

	results = nil
	status = getJSON(t, ts.URL+"/api/v1/providers/unknown/results", &results)

	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, results)
}

func TestHandleProviderStats(t *testing.T) {
	ts, st := setupTestServer(t)
	seedRun(t, st)

	var stats []store.ProviderStats
	status := getJSON(t, ts.URL+"/api/v1/providers/stats", &stats)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, stats, 1)
	assert.Equal(t, "minio", stats[0].Provider)
}
