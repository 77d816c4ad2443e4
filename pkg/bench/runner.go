package bench

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/storebenchoor/pkg/payload"
	"github.com/ethpandaops/storebenchoor/pkg/storage"
)

// Options configure a Runner.
type Options struct {
	// Repeats is the number of times each cell is executed; results are
	// aggregated across repeats.
	Repeats int

	// Workers bounds the concurrency of parallel operations.
	Workers int

	// MaxRetries is the total attempt budget per object operation.
	MaxRetries int

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// Prefix is the object key prefix for this run.
	Prefix string

	// RateLimit caps operations per second in parallel mode. Zero means
	// unlimited.
	RateLimit float64
}

// Runner executes one operation × size-class cell against a backend.
type Runner interface {
	Run(ctx context.Context, backend storage.Backend, op Operation, class SizeClass) (*Result, error)
}

// NewRunner creates a Runner with the given options.
func NewRunner(log logrus.FieldLogger, opts *Options) Runner {
	r := &runner{
		log:  log.WithField("component", "runner"),
		opts: opts,
	}

	if opts.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return r
}

type runner struct {
	log     logrus.FieldLogger
	opts    *Options
	limiter *rate.Limiter
}

// Ensure interface compliance.
var _ Runner = (*runner)(nil)

// Run executes the cell: Repeats repeats of FileCount object operations,
// sequentially or fanned out across Workers goroutines. Individual
// operation failures are folded into the result; only context
// cancellation aborts the run.
func (r *runner) Run(
	ctx context.Context,
	backend storage.Backend,
	op Operation,
	class SizeClass,
) (*Result, error) {
	var data []byte
	if !op.IsRead() {
		data = payload.Generate(class.ByteSize)
	}

	repeats := make([]Repeat, 0, r.opts.Repeats)

	for repeat := 0; repeat < r.opts.Repeats; repeat++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			samples []RawSample
			err     error
		)

		start := time.Now()

		if op.IsParallel() {
			samples, err = r.runParallel(ctx, backend, op, class, data, repeat)
		} else {
			samples, err = r.runSequential(ctx, backend, op, class, data, repeat)
		}

		if err != nil {
			return nil, err
		}

		repeats = append(repeats, Repeat{
			Samples:  samples,
			Duration: time.Since(start),
		})
	}

	result := Aggregate(op, class, repeats)

	if result.Failures > 0 {
		r.log.WithFields(logrus.Fields{
			"operation": op,
			"byte_size": class.ByteSize,
			"failures":  result.Failures,
		}).Warn("Operations failed during benchmark cell")
	}

	return result, nil
}

// runSequential performs the repeat's operations one after another in
// strict file-index order.
func (r *runner) runSequential(
	ctx context.Context,
	backend storage.Backend,
	op Operation,
	class SizeClass,
	data []byte,
	repeat int,
) ([]RawSample, error) {
	samples := make([]RawSample, 0, class.FileCount)

	for i := 0; i < class.FileCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := payload.Key(r.opts.Prefix, class.ByteSize, i, repeat)
		samples = append(samples, r.attempt(ctx, backend, op, key, data, class.ByteSize))
	}

	return samples, nil
}

// runParallel fans the repeat's operations out across up to Workers
// goroutines and joins them all before returning. Samples land in a
// mutex-guarded slice; workers share nothing else mutable.
func (r *runner) runParallel(
	ctx context.Context,
	backend storage.Backend,
	op Operation,
	class SizeClass,
	data []byte,
	repeat int,
) ([]RawSample, error) {
	var (
		mu      sync.Mutex
		samples = make([]RawSample, 0, class.FileCount)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i := 0; i < class.FileCount; i++ {
		index := i

		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			key := payload.Key(r.opts.Prefix, class.ByteSize, index, repeat)
			sample := r.attempt(gctx, backend, op, key, data, class.ByteSize)

			mu.Lock()
			samples = append(samples, sample)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return samples, nil
}

// attempt executes one object operation with the configured retry budget.
// Each attempt gets its own deadline; a timed-out attempt still consumes
// retry budget. Auth and not-found failures are not retried.
func (r *runner) attempt(
	ctx context.Context,
	backend storage.Backend,
	op Operation,
	key string,
	data []byte,
	expectedSize int64,
) RawSample {
	attempts := r.opts.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		duration, err := r.executeOnce(ctx, backend, op, key, data, expectedSize)
		if err == nil {
			return RawSample{Duration: duration, Bytes: expectedSize}
		}

		lastErr = err

		switch storage.KindOf(err) {
		case storage.KindAuth, storage.KindNotFound:
			// Retrying cannot help.
			return RawSample{Err: err}
		}

		if attempt < attempts {
			r.log.WithError(err).WithFields(logrus.Fields{
				"key":     key,
				"attempt": attempt,
			}).Debug("Retrying operation")
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}

	return RawSample{Err: lastErr}
}

// executeOnce performs a single timed attempt.
func (r *runner) executeOnce(
	ctx context.Context,
	backend storage.Backend,
	op Operation,
	key string,
	data []byte,
	expectedSize int64,
) (time.Duration, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	if !op.IsRead() {
		return backend.Put(opCtx, key, data)
	}

	content, duration, err := backend.Get(opCtx, key)
	if err != nil {
		return 0, err
	}

	if int64(len(content)) != expectedSize {
		return 0, fmt.Errorf(
			"object %q has %d bytes, expected %d", key, len(content), expectedSize,
		)
	}

	return duration, nil
}
