package montecarlo

// DefaultBatchSize is how many samples a worker draws between publishes.
const DefaultBatchSize uint64 = 10_000

// ProcessBatch draws n points from src and returns how many landed inside the
// quarter circle. It touches no shared state.
func ProcessBatch(src Source, n uint64) uint64 {
	var inside uint64
	for range n {
		if Sample(src) {
			inside++
		}
	}
	return inside
}
