package montecarlo

import "errors"

var (
	// ErrInvalidSampleCount is returned when fewer than MinSamples points are requested.
	ErrInvalidSampleCount = errors.New("invalid sample count")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidChunkSize   = errors.New("invalid chunk size")

	// ErrDegenerateAggregation means the counters cannot produce an estimate.
	// It signals a broken invariant and is never retried.
	ErrDegenerateAggregation = errors.New("degenerate aggregation")

	// ErrWorkerFailure is returned when a worker fails mid-batch. The run as a
	// whole is failed so a missing contribution never biases the estimate.
	ErrWorkerFailure = errors.New("worker failure")

	ErrRunStarted = errors.New("run already started")
)
