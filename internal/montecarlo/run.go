package montecarlo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"montepi/internal/logging"
)

const (
	// MinSamples is the smallest run that yields a meaningful estimate.
	MinSamples uint64 = 1000
	// DefaultSamples is what callers fall back to when no valid count is given.
	DefaultSamples uint64 = 1_000_000
)

// Options configures a Run.
type Options struct {
	Samples   uint64
	Workers   int
	Plan      Plan
	BatchSize uint64
	Seed      uint64
	Source    SourceKind
	// NewSource overrides Source when set.
	NewSource SourceFactory
	Logger    logrus.FieldLogger
}

// Run is a single estimation. It owns its counters from NewRun until the
// caller drops it; Execute may be called once.
type Run struct {
	opts      Options
	newSource SourceFactory
	log       logrus.FieldLogger

	counters *Counters
	chunks   []Chunk
	state    atomic.Int32

	done     chan struct{}
	doneOnce sync.Once
}

// NewRun validates opts and allocates the run's counters. Invalid sample or
// worker counts are rejected before anything is allocated.
func NewRun(opts Options) (*Run, error) {
	if opts.Samples < MinSamples {
		return nil, fmt.Errorf("%w: %d is below the minimum of %d", ErrInvalidSampleCount, opts.Samples, MinSamples)
	}
	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, opts.Workers)
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}

	factory := opts.NewSource
	if factory == nil {
		var err error
		if factory, err = NewSourceFactory(opts.Source); err != nil {
			return nil, err
		}
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Run{
		opts:      opts,
		newSource: factory,
		log:       log,
		counters:  NewCounters(opts.Workers),
		done:      make(chan struct{}),
	}, nil
}

// Estimate creates and executes a run in one step.
func Estimate(ctx context.Context, opts Options) (Result, error) {
	r, err := NewRun(opts)
	if err != nil {
		return Result{}, err
	}
	return r.Execute(ctx)
}

// Execute partitions the samples, runs every chunk, waits for all workers and
// aggregates the counters. ctx is checked between batches; a canceled run
// fails rather than reporting a partial estimate.
func (r *Run) Execute(ctx context.Context) (res Result, err error) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StatePartitioned)) {
		return Result{}, fmt.Errorf("%w: state is %s", ErrRunStarted, r.State())
	}
	defer r.finish(&err)

	r.chunks, err = Partition(r.opts.Samples, r.opts.Workers, r.opts.Plan)
	if err != nil {
		return Result{}, err
	}
	log := r.log.WithFields(logrus.Fields{
		"samples": r.opts.Samples,
		"workers": r.opts.Workers,
		"chunks":  len(r.chunks),
		"policy":  r.opts.Plan.Policy.String(),
	})
	log.Debug("samples partitioned")

	if err = r.advance(StatePartitioned); err != nil {
		return Result{}, err
	}
	start := time.Now()
	if err = r.dispatch(ctx); err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)
	if err = r.advance(StateRunning); err != nil {
		return Result{}, err
	}
	r.signalDone()
	log.WithField("elapsed", elapsed).Debug("workers joined")

	hits, total := r.counters.Hits(), r.counters.Total()
	if total != r.opts.Samples {
		return Result{}, fmt.Errorf("%w: counted %d of %d samples", ErrDegenerateAggregation, total, r.opts.Samples)
	}
	res, err = Aggregate(hits, total, elapsed)
	if err != nil {
		return Result{}, err
	}
	res.Workers = r.opts.Workers
	res.Chunks = len(r.chunks)
	res.Policy = r.opts.Plan.Policy.String()
	res.Seed = r.opts.Seed

	if err = r.advance(StateJoined); err != nil {
		return Result{}, err
	}
	if err = r.advance(StateAggregated); err != nil {
		return Result{}, err
	}
	log.WithField("pi", res.Pi).Debug("run complete")
	return res, nil
}

// dispatch fans the chunks out to workers and blocks until all of them return.
// Equal-split chunks are pinned to the worker of the same index; bounded
// chunks go through a queue drained by a fixed pool.
func (r *Run) dispatch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	switch r.opts.Plan.Policy {
	case PolicyBounded:
		work := make(chan Chunk, r.opts.Workers)
		for id := range r.opts.Workers {
			g.Go(func() error {
				for chunk := range work {
					if err := r.runChunk(ctx, id, chunk); err != nil {
						return err
					}
				}
				return nil
			})
		}
		g.Go(func() error {
			defer close(work)
			for _, chunk := range r.chunks {
				select {
				case work <- chunk:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	default:
		for _, chunk := range r.chunks {
			g.Go(func() error {
				return r.runChunk(ctx, chunk.Index, chunk)
			})
		}
	}

	return g.Wait()
}

// runChunk samples one chunk in batches, publishing once per batch.
func (r *Run) runChunk(ctx context.Context, worker int, chunk Chunk) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: worker %d, chunk %d: %v", ErrWorkerFailure, worker, chunk.Index, p)
		}
	}()

	src := r.newSource(r.opts.Seed, chunk.Index)
	for remaining := chunk.Len(); remaining > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(r.opts.BatchSize, remaining)
		r.counters.Publish(worker, ProcessBatch(src, n), n)
		remaining -= n
	}
	return nil
}

func (r *Run) advance(from State) error {
	to, ok := from.next()
	if !ok || !r.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("cannot leave state %s: run is %s", from, r.State())
	}
	return nil
}

func (r *Run) finish(err *error) {
	if *err != nil {
		r.state.Store(int32(StateFailed))
		r.log.WithError(*err).Debug("run failed")
	}
	r.signalDone()
}

func (r *Run) signalDone() {
	r.doneOnce.Do(func() { close(r.done) })
}

// State returns the current lifecycle stage.
func (r *Run) State() State {
	return State(r.state.Load())
}

// Done is closed once every worker has returned, whether or not the run
// succeeded.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Snapshot reads the live counters.
func (r *Run) Snapshot() Snapshot {
	return r.counters.Snapshot()
}

// Counters exposes the run's counters, mainly so callers can Reset them.
func (r *Run) Counters() *Counters {
	return r.counters
}

// Target is the number of samples the run will draw.
func (r *Run) Target() uint64 {
	return r.opts.Samples
}

// Workers is the number of worker slots.
func (r *Run) Workers() int {
	return r.opts.Workers
}

// Chunks returns the partition once the run has started running.
func (r *Run) Chunks() []Chunk {
	if r.State() < StateRunning {
		return nil
	}
	return append([]Chunk(nil), r.chunks...)
}

// WorkerTargets is each worker's expected share. It is exact for equal split
// and an even estimate for the bounded policy, where chunks are handed out
// on demand.
func (r *Run) WorkerTargets() []uint64 {
	n, t := r.opts.Samples, uint64(r.opts.Workers)
	targets := make([]uint64, t)
	switch r.opts.Plan.Policy {
	case PolicyBounded:
		share := (n + t - 1) / t
		for i := range targets {
			targets[i] = share
		}
	default:
		for i := range targets {
			targets[i] = n / t
		}
		targets[t-1] += n % t
	}
	return targets
}
