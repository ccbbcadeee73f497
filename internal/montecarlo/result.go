package montecarlo

import (
	"fmt"
	"math"
	"time"
)

// Result is the outcome of a finished run.
type Result struct {
	Pi         float64       `json:"pi" yaml:"pi"`
	Hits       uint64        `json:"hits" yaml:"hits"`
	Total      uint64        `json:"total" yaml:"total"`
	Workers    int           `json:"workers" yaml:"workers"`
	Chunks     int           `json:"chunks" yaml:"chunks"`
	Policy     string        `json:"policy" yaml:"policy"`
	Seed       uint64        `json:"seed" yaml:"seed"`
	Elapsed    time.Duration `json:"elapsed_ns" yaml:"elapsed"`
	Throughput float64       `json:"samples_per_second" yaml:"samples_per_second"`
}

// Aggregate computes the estimate 4*hits/total and the throughput. A zero
// total is an error rather than NaN.
func Aggregate(hits, total uint64, elapsed time.Duration) (Result, error) {
	if total == 0 {
		return Result{}, fmt.Errorf("%w: total is zero", ErrDegenerateAggregation)
	}
	if hits > total {
		return Result{}, fmt.Errorf("%w: %d hits out of %d samples", ErrDegenerateAggregation, hits, total)
	}

	return Result{
		Pi:         4.0 * float64(hits) / float64(total),
		Hits:       hits,
		Total:      total,
		Elapsed:    elapsed,
		Throughput: Throughput(total, elapsed),
	}, nil
}

// Throughput returns samples per second, or 0 when no time has elapsed.
func Throughput(total uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(total) / elapsed.Seconds()
}

// Deviation is the absolute distance from math.Pi.
func (r Result) Deviation() float64 {
	return math.Abs(r.Pi - math.Pi)
}
