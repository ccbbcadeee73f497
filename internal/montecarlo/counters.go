package montecarlo

import "sync/atomic"

// Counters are the only shared mutable state of a run. All mutation goes
// through atomic adds.
//
// Publish adds to total before hits and Snapshot loads hits before total, so
// every observer sees Hits <= Total.
type Counters struct {
	hits     atomic.Uint64
	total    atomic.Uint64
	progress []atomic.Uint64
}

// NewCounters allocates counters with one progress slot per worker.
func NewCounters(workers int) *Counters {
	return &Counters{progress: make([]atomic.Uint64, workers)}
}

// Publish records one finished batch for worker.
func (c *Counters) Publish(worker int, hits, samples uint64) {
	c.total.Add(samples)
	c.hits.Add(hits)
	c.progress[worker].Add(samples)
}

func (c *Counters) Hits() uint64  { return c.hits.Load() }
func (c *Counters) Total() uint64 { return c.total.Load() }

// Progress returns how many samples worker has published so far.
func (c *Counters) Progress(worker int) uint64 {
	return c.progress[worker].Load()
}

// Workers returns the number of progress slots.
func (c *Counters) Workers() int {
	return len(c.progress)
}

// Reset zeroes every counter. It must not race with Publish.
func (c *Counters) Reset() {
	c.hits.Store(0)
	c.total.Store(0)
	for i := range c.progress {
		c.progress[i].Store(0)
	}
}

// Snapshot is a point-in-time read of the counters. Individual values are
// exact; the set as a whole may be slightly stale.
type Snapshot struct {
	Hits    uint64
	Total   uint64
	Workers []uint64
}

// Snapshot reads every counter once.
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{Workers: make([]uint64, len(c.progress))}
	s.Hits = c.hits.Load()
	s.Total = c.total.Load()
	for i := range c.progress {
		s.Workers[i] = c.progress[i].Load()
	}
	return s
}

// Percent returns Total as a percentage of target, capped at 100.
func (s Snapshot) Percent(target uint64) float64 {
	return percent(s.Total, target)
}

func percent(done, target uint64) float64 {
	if target == 0 {
		return 100
	}
	return min(float64(done)/float64(target)*100, 100)
}

// WorkerPercent returns one worker's progress against its expected share.
func WorkerPercent(done, target uint64) float64 {
	return percent(done, target)
}
