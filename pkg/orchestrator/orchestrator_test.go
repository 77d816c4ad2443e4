package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/storebenchoor/pkg/bench"
	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/orchestrator"
	"github.com/ethpandaops/storebenchoor/pkg/storage"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func tinyProfile() *bench.Profile {
	return &bench.Profile{
		Name: "tiny",
		Classes: []bench.SizeClass{
			{ByteSize: 256, FileCount: 2},
		},
	}
}

func benchOptions() *bench.Options {
	return &bench.Options{
		Repeats:    1,
		Workers:    2,
		MaxRetries: 1,
		Timeout:    5 * time.Second,
		Prefix:     "bench-test",
	}
}

func localProvider(t *testing.T, name string) config.ProviderConfig {
	t.Helper()

	return config.ProviderConfig{
		Name:     name,
		Type:     config.ProviderLocal,
		BasePath: t.TempDir(),
	}
}

// unreachableBackend fails validation the way an S3 backend with a dead
// endpoint would.
type unreachableBackend struct {
	storage.Backend
}

func (u *unreachableBackend) Validate(context.Context) error {
	return &storage.Error{Kind: storage.KindNetwork, Err: errors.New("connection refused")}
}

func factoryFailing(names ...string) orchestrator.BackendFactory {
	failing := make(map[string]bool, len(names))
	for _, n := range names {
		failing[n] = true
	}

	return func(
		log logrus.FieldLogger, p *config.ProviderConfig, timeout time.Duration,
	) (storage.Backend, error) {
		backend, err := storage.New(log, p, timeout)
		if err != nil {
			return nil, err
		}

		if failing[p.Name] {
			return &unreachableBackend{Backend: backend}, nil
		}

		return backend, nil
	}
}

func TestOrchestrator_AllProvidersSucceed(t *testing.T) {
	providers := []config.ProviderConfig{
		localProvider(t, "disk-a"),
		localProvider(t, "disk-b"),
	}

	o := orchestrator.NewOrchestrator(testLogger(), &orchestrator.Options{
		Profile:   tinyProfile(),
		Providers: providers,
		Bench:     benchOptions(),
		Cleanup:   true,
	})

	outcome, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StatusSuccess, outcome.Status)
	assert.Empty(t, outcome.FailedProviders)
	assert.Equal(t, orchestrator.StateComplete, o.State())

	// 2 providers × 1 class × 4 operations.
	require.Len(t, outcome.Results, 8)

	for _, result := range outcome.Results {
		assert.Contains(t, []string{"disk-a", "disk-b"}, result.Provider)
		assert.Equal(t, config.ProviderLocal, result.ProviderKind)
		assert.Equal(t, 0, result.Failures)
		assert.False(t, result.Failed)
	}
}

func TestOrchestrator_UnreachableProviderIsIsolated(t *testing.T) {
	providers := []config.ProviderConfig{
		localProvider(t, "healthy"),
		{Name: "dead-s3", Type: config.ProviderS3, Endpoint: "http://127.0.0.1:1", Bucket: "b"},
	}

	o := orchestrator.NewOrchestrator(testLogger(), &orchestrator.Options{
		Profile:   tinyProfile(),
		Providers: providers,
		Bench:     benchOptions(),
		Factory:   factoryFailing("dead-s3"),
	})

	outcome, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StatusPartialFailure, outcome.Status)
	require.Len(t, outcome.FailedProviders, 1)
	assert.Equal(t, "dead-s3", outcome.FailedProviders[0].Provider)
	assert.NotEmpty(t, outcome.FailedProviders[0].Reason)

	// The healthy provider's cells all completed.
	require.Len(t, outcome.Results, 4)

	for _, result := range outcome.Results {
		assert.Equal(t, "healthy", result.Provider)
	}
}

func TestOrchestrator_AllProvidersFail(t *testing.T) {
	providers := []config.ProviderConfig{
		localProvider(t, "dead-a"),
		localProvider(t, "dead-b"),
	}

	o := orchestrator.NewOrchestrator(testLogger(), &orchestrator.Options{
		Profile:   tinyProfile(),
		Providers: providers,
		Bench:     benchOptions(),
		Factory:   factoryFailing("dead-a", "dead-b"),
	})

	outcome, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StatusTotalFailure, outcome.Status)
	assert.Len(t, outcome.FailedProviders, 2)
	assert.Empty(t, outcome.Results)
	assert.Equal(t, orchestrator.StateFailed, o.State())
}

func TestOrchestrator_CleanupRemovesObjects(t *testing.T) {
	dir := t.TempDir()
	providers := []config.ProviderConfig{{
		Name:     "disk",
		Type:     config.ProviderLocal,
		BasePath: dir,
	}}

	o := orchestrator.NewOrchestrator(testLogger(), &orchestrator.Options{
		Profile:   tinyProfile(),
		Providers: providers,
		Bench:     benchOptions(),
		Cleanup:   true,
	})

	outcome, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, orchestrator.StatusSuccess, outcome.Status)

	backend := storage.NewLocalBackend(dir)
	keys, err := backend.List(context.Background(), "bench-test")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOrchestrator_CleanupDisabledKeepsObjects(t *testing.T) {
	dir := t.TempDir()
	providers := []config.ProviderConfig{{
		Name:     "disk",
		Type:     config.ProviderLocal,
		BasePath: dir,
	}}

	o := orchestrator.NewOrchestrator(testLogger(), &orchestrator.Options{
		Profile:   tinyProfile(),
		Providers: providers,
		Bench:     benchOptions(),
		Cleanup:   false,
	})

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	backend := storage.NewLocalBackend(dir)
	keys, err := backend.List(context.Background(), "bench-test")
	require.NoError(t, err)
	assert.NotEmpty(t, keys)
}

func TestOrchestrator_ResultCallback(t *testing.T) {
	var seen []string

	o := orchestrator.NewOrchestrator(testLogger(), &orchestrator.Options{
		Profile:   tinyProfile(),
		Providers: []config.ProviderConfig{localProvider(t, "disk")},
		Bench:     benchOptions(),
		OnResult: func(r *bench.Result) {
			seen = append(seen, string(r.Operation))
		},
	})

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"WRITE", "WRITE-P", "READ", "READ-P"}, seen)
}

func TestOrchestrator_ContextCancellation(t *testing.T) {
	o := orchestrator.NewOrchestrator(testLogger(), &orchestrator.Options{
		Profile:   tinyProfile(),
		Providers: []config.ProviderConfig{localProvider(t, "disk")},
		Bench:     benchOptions(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, orchestrator.StateFailed, o.State())
}
