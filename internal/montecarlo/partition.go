package montecarlo

import (
	"fmt"
	"strings"
)

const (
	// DefaultMinChunkSize is the smallest chunk the bounded policy emits,
	// unless the whole run is smaller.
	DefaultMinChunkSize uint64 = 10_000
	// DefaultChunksPerWorker is the load-balance target for the bounded policy.
	DefaultChunksPerWorker = 10
)

// Chunk is the half-open range [Start, End) of sample indices.
type Chunk struct {
	Index int
	Start uint64
	End   uint64
}

// Len returns the number of samples in the chunk.
func (c Chunk) Len() uint64 {
	return c.End - c.Start
}

// Policy selects how samples are split into chunks.
type Policy int

const (
	// PolicyEqualSplit emits one chunk per worker. The last worker takes the
	// remainder.
	PolicyEqualSplit Policy = iota
	// PolicyBounded emits chunks of a clamped size, roughly
	// DefaultChunksPerWorker per worker, pulled from a shared queue.
	PolicyBounded
)

func (p Policy) String() string {
	switch p {
	case PolicyEqualSplit:
		return "equal"
	case PolicyBounded:
		return "bounded"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "equal" or "bounded".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal", "equal-split", "":
		return PolicyEqualSplit, nil
	case "bounded", "chunked":
		return PolicyBounded, nil
	default:
		return 0, fmt.Errorf("unknown partition policy %q", s)
	}
}

// Plan carries the partition parameters.
type Plan struct {
	Policy          Policy
	MinChunkSize    uint64
	ChunksPerWorker int
}

// Partition splits [0, n) for the given worker count according to plan.
func Partition(n uint64, workers int, plan Plan) ([]Chunk, error) {
	switch plan.Policy {
	case PolicyEqualSplit:
		return EqualSplit(n, workers)
	case PolicyBounded:
		if workers < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workers)
		}
		size, err := ChunkSize(n, workers, plan.ChunksPerWorker, plan.MinChunkSize)
		if err != nil {
			return nil, err
		}
		return Bounded(n, size)
	default:
		return nil, fmt.Errorf("unknown partition policy %v", plan.Policy)
	}
}

// EqualSplit gives each worker n/workers samples and the last worker the
// remainder. When n < workers the leading chunks are empty.
func EqualSplit(n uint64, workers int) ([]Chunk, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workers)
	}

	perWorker := n / uint64(workers)
	remainder := n % uint64(workers)

	chunks := make([]Chunk, workers)
	for i := range workers {
		start := uint64(i) * perWorker
		end := start + perWorker
		if i == workers-1 {
			end += remainder
		}
		chunks[i] = Chunk{Index: i, Start: start, End: end}
	}
	return chunks, nil
}

// ChunkSize picks n/(workers*perWorker) clamped to [minSize, n].
func ChunkSize(n uint64, workers, perWorker int, minSize uint64) (uint64, error) {
	if workers < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workers)
	}
	if perWorker < 1 {
		perWorker = DefaultChunksPerWorker
	}
	if minSize == 0 {
		minSize = DefaultMinChunkSize
	}

	size := max(n/(uint64(workers)*uint64(perWorker)), minSize)
	size = min(size, n)
	if size == 0 {
		return 0, fmt.Errorf("%w: no samples to split", ErrInvalidChunkSize)
	}
	return size, nil
}

// Bounded emits ceil(n/size) chunks of size samples; the final one may be
// shorter.
func Bounded(n, size uint64) ([]Chunk, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: 0", ErrInvalidChunkSize)
	}

	count := n / size
	if n%size != 0 {
		count++
	}

	chunks := make([]Chunk, 0, count)
	for start := uint64(0); start < n; start += size {
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   min(start+size, n),
		})
	}
	return chunks, nil
}
