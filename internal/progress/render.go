package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const (
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
	clearScreen = "\x1b[H\x1b[2J"
	cursorHome  = "\x1b[H"
)

const barTemplate = `{{string . "prefix"}} {{bar . "[" "█" "█" "░" "]"}} {{percent . "%.1f%%"}}`

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewRenderer picks bars when out is a terminal and log lines otherwise.
func NewRenderer(out io.Writer, width int, log logrus.FieldLogger) Renderer {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return NewBarRenderer(out, width)
	}
	return NewLogRenderer(log, 10)
}

// BarRenderer redraws one bar per worker plus an overall bar, in place.
type BarRenderer struct {
	out   io.Writer
	width int
	spin  int

	workers []*pb.ProgressBar
	overall *pb.ProgressBar
}

// NewBarRenderer draws bars of roughly width cells.
func NewBarRenderer(out io.Writer, width int) *BarRenderer {
	return &BarRenderer{out: out, width: width}
}

func (r *BarRenderer) newBar(prefix string) *pb.ProgressBar {
	return pb.New64(0).
		SetTemplateString(barTemplate).
		SetWidth(r.width+len(prefix)+10).
		Set("prefix", prefix)
}

func (r *BarRenderer) Start(workers int) error {
	r.workers = make([]*pb.ProgressBar, workers)
	for i := range r.workers {
		r.workers[i] = r.newBar(fmt.Sprintf("[worker %d]", i))
	}
	r.overall = r.newBar("[total]   ")

	_, err := io.WriteString(r.out, hideCursor+clearScreen)
	return err
}

func (r *BarRenderer) Render(f Frame) error {
	_, err := io.WriteString(r.out, cursorHome+r.draw(f, spinnerFrames[r.spin%len(spinnerFrames)]))
	r.spin++
	return err
}

func (r *BarRenderer) Finish(f Frame) error {
	_, err := io.WriteString(r.out, cursorHome+r.draw(f, "✓")+showCursor+"\n")
	return err
}

func (r *BarRenderer) draw(f Frame, spinner string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Computing... %s\n\nWorkers:\n\n", spinner)
	for i, bar := range r.workers {
		var done, target uint64
		if i < len(f.Snapshot.Workers) {
			done = f.Snapshot.Workers[i]
		}
		if i < len(f.WorkerTargets) {
			target = f.WorkerTargets[i]
		}
		b.WriteString(renderBar(bar, done, target))
		b.WriteString("\n\n")
	}
	b.WriteString(renderBar(r.overall, f.Snapshot.Total, f.Target))
	fmt.Fprintf(&b, "  %d/%d\n", f.Snapshot.Total, f.Target)
	return b.String()
}

// renderBar draws bar at done/target. An empty share is shown as complete.
func renderBar(bar *pb.ProgressBar, done, target uint64) string {
	if target == 0 {
		done, target = 1, 1
	}
	bar.SetTotal(int64(target))
	bar.SetCurrent(int64(min(done, target)))
	return bar.String()
}

// LogRenderer emits a log line each time overall progress crosses another
// step percent. It is used when output is not a terminal.
type LogRenderer struct {
	log  logrus.FieldLogger
	step float64
	last float64
}

func NewLogRenderer(log logrus.FieldLogger, step float64) *LogRenderer {
	if step <= 0 {
		step = 10
	}
	return &LogRenderer{log: log, step: step, last: -1}
}

func (r *LogRenderer) Start(workers int) error {
	r.log.WithField("workers", workers).Info("sampling started")
	return nil
}

func (r *LogRenderer) Render(f Frame) error {
	p := f.Percent()
	bucket := float64(int(p/r.step)) * r.step
	if bucket <= r.last {
		return nil
	}
	r.last = bucket
	r.entry(f).Info("sampling progress")
	return nil
}

func (r *LogRenderer) Finish(f Frame) error {
	r.entry(f).Info("sampling finished")
	return nil
}

func (r *LogRenderer) entry(f Frame) *logrus.Entry {
	return r.log.WithFields(logrus.Fields{
		"percent": fmt.Sprintf("%.1f", f.Percent()),
		"samples": f.Snapshot.Total,
		"target":  f.Target,
		"elapsed": f.Elapsed.Round(time.Millisecond).String(),
	})
}
