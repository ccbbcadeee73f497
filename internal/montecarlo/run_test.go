package montecarlo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicSource struct{}

func (panicSource) Float64() float64 { panic("source exhausted") }

func TestRunEqualSplitEndToEnd(t *testing.T) {
	run, err := NewRun(Options{Samples: 1_000_000, Workers: 4, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, run.State())
	assert.Nil(t, run.Chunks())

	res, err := run.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, run.State())
	chunks := run.Chunks()
	require.Len(t, chunks, 4)
	for _, c := range chunks {
		assert.Equal(t, uint64(250_000), c.Len())
	}

	assert.Equal(t, uint64(1_000_000), res.Total)
	assert.Equal(t, uint64(1_000_000), run.Counters().Total())
	assert.Equal(t, 4, res.Workers)
	assert.Equal(t, 4, res.Chunks)
	assert.Equal(t, "equal", res.Policy)
	assert.GreaterOrEqual(t, res.Pi, 3.0)
	assert.LessOrEqual(t, res.Pi, 3.3)
	assert.Equal(t, []uint64{250_000, 250_000, 250_000, 250_000}, run.Snapshot().Workers)

	select {
	case <-run.Done():
	default:
		t.Fatal("done channel not closed after a finished run")
	}
}

func TestRunConverges(t *testing.T) {
	for _, policy := range []Policy{PolicyEqualSplit, PolicyBounded} {
		t.Run(policy.String(), func(t *testing.T) {
			res, err := Estimate(context.Background(), Options{
				Samples: 1_000_000,
				Workers: 4,
				Plan:    Plan{Policy: policy},
				Seed:    20240314,
			})
			require.NoError(t, err)
			assert.InDelta(t, math.Pi, res.Pi, 0.01)
		})
	}
}

func TestRunIsDeterministicWithFixedSeed(t *testing.T) {
	cases := []struct {
		name   string
		plan   Plan
		source SourceKind
	}{
		{"equal/pcg", Plan{Policy: PolicyEqualSplit}, SourcePCG},
		{"equal/lcg", Plan{Policy: PolicyEqualSplit}, SourceLCG},
		{"bounded/pcg", Plan{Policy: PolicyBounded, MinChunkSize: 1000}, SourcePCG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Options{
				Samples:   200_000,
				Workers:   3,
				Plan:      tc.plan,
				BatchSize: 777,
				Seed:      99,
				Source:    tc.source,
			}
			first, err := Estimate(context.Background(), opts)
			require.NoError(t, err)
			second, err := Estimate(context.Background(), opts)
			require.NoError(t, err)

			assert.Equal(t, first.Hits, second.Hits)
			assert.Equal(t, first.Pi, second.Pi)
		})
	}
}

func TestLCGRunStaysPlausible(t *testing.T) {
	res, err := Estimate(context.Background(), Options{
		Samples: 1_000_000,
		Workers: 4,
		Source:  SourceLCG,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Pi, 3.0)
	assert.LessOrEqual(t, res.Pi, 3.3)
}

func TestNewRunRejectsInvalidSampleCount(t *testing.T) {
	for _, n := range []uint64{0, 1, MinSamples - 1} {
		run, err := NewRun(Options{Samples: n, Workers: 2})
		assert.ErrorIs(t, err, ErrInvalidSampleCount, "samples=%d", n)
		assert.Nil(t, run)
	}

	run, err := NewRun(Options{Samples: MinSamples, Workers: 2})
	require.NoError(t, err)
	assert.NotNil(t, run)
}

func TestNewRunRejectsInvalidOptions(t *testing.T) {
	_, err := NewRun(Options{Samples: 5000, Workers: 0})
	assert.ErrorIs(t, err, ErrInvalidWorkerCount)

	_, err = NewRun(Options{Samples: 5000, Workers: 1, Source: "xorshift"})
	assert.Error(t, err)
}

func TestRunBoundedPolicy(t *testing.T) {
	run, err := NewRun(Options{
		Samples:   95_000,
		Workers:   3,
		Plan:      Plan{Policy: PolicyBounded, MinChunkSize: 10_000, ChunksPerWorker: 10},
		BatchSize: 4_000,
		Seed:      5,
	})
	require.NoError(t, err)

	res, err := run.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(95_000), res.Total)
	assert.Equal(t, 10, res.Chunks)
	assert.Equal(t, "bounded", res.Policy)

	var sum uint64
	for _, p := range run.Snapshot().Workers {
		sum += p
	}
	assert.Equal(t, uint64(95_000), sum)
	assert.Equal(t, []uint64{31_667, 31_667, 31_667}, run.WorkerTargets())
}

func TestRunCountersObservedWhileRunning(t *testing.T) {
	run, err := NewRun(Options{Samples: 4_000_000, Workers: 4, BatchSize: 1_000})
	require.NoError(t, err)

	type observation struct {
		ok     bool
		reason string
	}
	result := make(chan observation, 1)
	go func() {
		var last Snapshot
		last.Workers = make([]uint64, run.Workers())
		for {
			s := run.Snapshot()
			if s.Hits > s.Total {
				result <- observation{reason: "hits exceeded total"}
				return
			}
			if s.Total < last.Total {
				result <- observation{reason: "total decreased"}
				return
			}
			for i := range s.Workers {
				if s.Workers[i] < last.Workers[i] {
					result <- observation{reason: "worker progress decreased"}
					return
				}
			}
			last = s
			select {
			case <-run.Done():
				result <- observation{ok: true}
				return
			default:
			}
		}
	}()

	res, err := run.Execute(context.Background())
	require.NoError(t, err)
	obs := <-result
	assert.True(t, obs.ok, obs.reason)
	assert.Equal(t, uint64(4_000_000), res.Total)
}

func TestRunWorkerPanicFailsRun(t *testing.T) {
	run, err := NewRun(Options{
		Samples: 40_000,
		Workers: 4,
		NewSource: func(seed uint64, chunk int) Source {
			if chunk == 2 {
				return panicSource{}
			}
			return newPCG(seed, chunk)
		},
	})
	require.NoError(t, err)

	_, err = run.Execute(context.Background())
	require.ErrorIs(t, err, ErrWorkerFailure)
	assert.Contains(t, err.Error(), "source exhausted")
	assert.Equal(t, StateFailed, run.State())

	select {
	case <-run.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel not closed after a failed run")
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := NewRun(Options{Samples: 100_000, Workers: 2, Plan: Plan{Policy: PolicyBounded}})
	require.NoError(t, err)

	_, err = run.Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, run.State())
}

func TestRunExecuteTwice(t *testing.T) {
	run, err := NewRun(Options{Samples: 1000, Workers: 1})
	require.NoError(t, err)

	_, err = run.Execute(context.Background())
	require.NoError(t, err)

	_, err = run.Execute(context.Background())
	assert.ErrorIs(t, err, ErrRunStarted)
	assert.Equal(t, StateDone, run.State())
}

func TestWorkerTargetsEqualSplit(t *testing.T) {
	run, err := NewRun(Options{Samples: 1003, Workers: 4})
	require.NoError(t, err)
	assert.Equal(t, []uint64{250, 250, 250, 253}, run.WorkerTargets())
	assert.Equal(t, uint64(1003), run.Target())
}

func TestProcessBatch(t *testing.T) {
	src := &scriptedSource{values: []float64{0.5, 0.5, 0.9, 0.9}}
	assert.Equal(t, uint64(5), ProcessBatch(src, 10))
	assert.Equal(t, uint64(0), ProcessBatch(src, 0))
}

func BenchmarkProcessBatch(b *testing.B) {
	src := newPCG(1, 0)
	for b.Loop() {
		ProcessBatch(src, DefaultBatchSize)
	}
}
