package progress

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"montepi/internal/montecarlo"
)

// DefaultInterval is how often the counters are polled.
const DefaultInterval = 50 * time.Millisecond

// Source is the read-only view of a run the reporter needs. *montecarlo.Run
// satisfies it.
type Source interface {
	Snapshot() montecarlo.Snapshot
	Target() uint64
	WorkerTargets() []uint64
	Done() <-chan struct{}
}

// Frame is everything a renderer needs for one redraw.
type Frame struct {
	Snapshot      montecarlo.Snapshot
	Target        uint64
	WorkerTargets []uint64
	Elapsed       time.Duration
}

// Percent is overall progress, 0-100.
func (f Frame) Percent() float64 {
	return f.Snapshot.Percent(f.Target)
}

// Renderer draws frames. Errors are logged by the reporter and never stop
// the run.
type Renderer interface {
	Start(workers int) error
	Render(Frame) error
	Finish(Frame) error
}

// Reporter polls a Source on a fixed interval and hands frames to a Renderer.
type Reporter struct {
	renderer Renderer
	interval time.Duration
	log      logrus.FieldLogger
}

// NewReporter returns a reporter. A non-positive interval uses DefaultInterval.
func NewReporter(renderer Renderer, interval time.Duration, log logrus.FieldLogger) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{renderer: renderer, interval: interval, log: log}
}

// Run renders until src signals completion or ctx is canceled, then renders
// one final frame so the last view matches the joined counters.
func (r *Reporter) Run(ctx context.Context, src Source) error {
	targets := src.WorkerTargets()
	start := time.Now()
	frame := func() Frame {
		return Frame{
			Snapshot:      src.Snapshot(),
			Target:        src.Target(),
			WorkerTargets: targets,
			Elapsed:       time.Since(start),
		}
	}

	if err := r.renderer.Start(len(targets)); err != nil {
		r.log.WithError(err).Warn("failed to initialise progress display")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-src.Done():
			return r.finish(frame())
		case <-ctx.Done():
			return r.finish(frame())
		case <-ticker.C:
			if err := r.renderer.Render(frame()); err != nil {
				r.log.WithError(err).Warn("failed to update progress display")
			}
		}
	}
}

func (r *Reporter) finish(f Frame) error {
	if err := r.renderer.Finish(f); err != nil {
		r.log.WithError(err).Warn("failed to finish progress display")
	}
	return nil
}
