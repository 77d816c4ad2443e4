package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/storebenchoor/pkg/bench"
	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/storage"
)

// State is the lifecycle phase of a benchmark run.
type State string

// Run states.
const (
	StateIdle      State = "idle"
	StatePreparing State = "preparing"
	StateRunning   State = "running"
	StateCleaning  State = "cleaning"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

// Status summarizes how a run ended across all providers.
type Status string

// Run statuses.
const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusTotalFailure   Status = "total_failure"
)

// ProviderFailure records a provider that could not complete its benchmark.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
}

// Outcome is the full result of one benchmark run.
type Outcome struct {
	Status          Status            `json:"status"`
	Results         []*bench.Result   `json:"results"`
	FailedProviders []ProviderFailure `json:"failed_providers,omitempty"`
}

// BackendFactory creates a storage backend for a provider. Injectable so
// tests can substitute fakes.
type BackendFactory func(
	log logrus.FieldLogger, provider *config.ProviderConfig, timeout time.Duration,
) (storage.Backend, error)

// Options configure an Orchestrator.
type Options struct {
	// Profile selects the size classes to benchmark.
	Profile *bench.Profile

	// Providers are the enabled providers to benchmark, in order.
	Providers []config.ProviderConfig

	// Bench carries the per-cell execution options.
	Bench *bench.Options

	// Cleanup removes benchmark objects after each provider completes.
	Cleanup bool

	// Factory creates backends. Defaults to storage.New.
	Factory BackendFactory

	// OnResult, if set, is invoked after each completed cell.
	OnResult func(*bench.Result)
}

// Orchestrator drives a full benchmark run across providers.
type Orchestrator interface {
	// Run benchmarks every provider in turn and returns the combined
	// outcome. A provider failure never aborts the run; only context
	// cancellation does.
	Run(ctx context.Context) (*Outcome, error)

	// State returns the current lifecycle phase.
	State() State
}

// NewOrchestrator creates an Orchestrator with the given options.
func NewOrchestrator(log logrus.FieldLogger, opts *Options) Orchestrator {
	factory := opts.Factory
	if factory == nil {
		factory = func(
			l logrus.FieldLogger, p *config.ProviderConfig, timeout time.Duration,
		) (storage.Backend, error) {
			return storage.New(l, p, timeout)
		}
	}

	return &orchestrator{
		log:     log.WithField("component", "orchestrator"),
		opts:    opts,
		factory: factory,
		runner:  bench.NewRunner(log, opts.Bench),
		state:   StateIdle,
	}
}

type orchestrator struct {
	log     logrus.FieldLogger
	opts    *Options
	factory BackendFactory
	runner  bench.Runner

	mu    sync.Mutex
	state State
}

// Ensure interface compliance.
var _ Orchestrator = (*orchestrator)(nil)

func (o *orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

func (o *orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run benchmarks each provider in sequence. Providers are isolated: a
// provider that fails validation or setup is recorded and skipped, and the
// remaining providers still run.
func (o *orchestrator) Run(ctx context.Context) (*Outcome, error) {
	outcome := &Outcome{}
	completed := 0

	for i := range o.opts.Providers {
		provider := &o.opts.Providers[i]

		if err := ctx.Err(); err != nil {
			o.setState(StateFailed)

			return nil, err
		}

		results, err := o.runProvider(ctx, provider)
		if err != nil {
			if ctx.Err() != nil {
				o.setState(StateFailed)

				return nil, err
			}

			o.log.WithError(err).WithField("provider", provider.Name).
				Error("Provider benchmark failed")

			outcome.FailedProviders = append(outcome.FailedProviders, ProviderFailure{
				Provider: provider.Name,
				Stage:    string(o.State()),
				Reason:   err.Error(),
			})

			continue
		}

		outcome.Results = append(outcome.Results, results...)
		completed++
	}

	switch {
	case completed == len(o.opts.Providers):
		outcome.Status = StatusSuccess

		o.setState(StateComplete)
	case completed > 0:
		outcome.Status = StatusPartialFailure

		o.setState(StateComplete)
	default:
		outcome.Status = StatusTotalFailure

		o.setState(StateFailed)
	}

	return outcome, nil
}

// runProvider validates the provider, runs every cell of the profile
// against it, and cleans up benchmark objects afterwards.
func (o *orchestrator) runProvider(
	ctx context.Context, provider *config.ProviderConfig,
) ([]*bench.Result, error) {
	log := o.log.WithField("provider", provider.Name)

	o.setState(StatePreparing)

	backend, err := o.factory(o.log, provider, o.opts.Bench.Timeout)
	if err != nil {
		return nil, fmt.Errorf("creating backend: %w", err)
	}

	if err := backend.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validating backend: %w", err)
	}

	log.WithField("backend", backend.Name()).Info("Starting provider benchmark")

	o.setState(StateRunning)

	results := make([]*bench.Result, 0, len(o.opts.Profile.Classes)*len(bench.Operations))

	for _, class := range o.opts.Profile.Classes {
		for _, op := range bench.Operations {
			log.WithFields(logrus.Fields{
				"operation":  op,
				"byte_size":  class.ByteSize,
				"file_count": class.FileCount,
			}).Info("Running benchmark cell")

			result, err := o.runner.Run(ctx, backend, op, class)
			if err != nil {
				o.cleanup(ctx, backend, provider.Name)

				return nil, fmt.Errorf("running %s cell: %w", op, err)
			}

			result.Provider = provider.Name
			result.ProviderKind = provider.Type
			results = append(results, result)

			if o.opts.OnResult != nil {
				o.opts.OnResult(result)
			}
		}
	}

	o.cleanup(ctx, backend, provider.Name)

	return results, nil
}

// cleanup removes all benchmark objects under the run prefix. Cleanup
// failures are logged but never fail the provider.
func (o *orchestrator) cleanup(ctx context.Context, backend storage.Backend, provider string) {
	if !o.opts.Cleanup {
		return
	}

	o.setState(StateCleaning)

	log := o.log.WithField("provider", provider)

	keys, err := backend.List(ctx, o.opts.Bench.Prefix)
	if err != nil {
		log.WithError(err).Warn("Failed to list benchmark objects for cleanup")

		return
	}

	var failed int

	for _, key := range keys {
		if err := backend.Delete(ctx, key); err != nil {
			failed++

			log.WithError(err).WithField("key", key).Debug("Failed to delete benchmark object")
		}
	}

	if failed > 0 {
		log.WithField("failed", failed).Warn("Some benchmark objects could not be deleted")
	} else {
		log.WithField("deleted", len(keys)).Info("Cleaned up benchmark objects")
	}
}
