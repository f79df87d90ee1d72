package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for blame processing.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
}

// NewTracker creates a progress bar on w with the given label and total count.
func NewTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label}
}

// Report moves the bar to done and shows the current throughput.
func (t *Tracker) Report(done int, rate float64) {
	t.bar.Describe(fmt.Sprintf("%s (%.2f/s)", t.label, rate))
	_ = t.bar.Set(done)
}

// FinishSuccess completes the bar and moves to a new line.
func (t *Tracker) FinishSuccess() {
	_ = t.bar.Finish()
	_ = t.bar.Exit()
}

// Blames reports blame throughput for one batch at a time on a terminal.
// It implements fileproc.ProgressSink.
type Blames struct {
	w       io.Writer
	tracker *Tracker
}

// NewBlames creates a sink writing to w.
func NewBlames(w io.Writer) *Blames {
	return &Blames{w: w}
}

// Start begins a new bar for a batch of total blames.
func (b *Blames) Start(label string, total int) {
	b.tracker = NewTracker(b.w, label+": processed blames", total)
}

// Update reports done of total blames at rate per second.
func (b *Blames) Update(done, _ int, rate float64) {
	if b.tracker != nil {
		b.tracker.Report(done, rate)
	}
}

// Finish completes the current bar.
func (b *Blames) Finish() {
	if b.tracker != nil {
		b.tracker.FinishSuccess()
		b.tracker = nil
	}
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(string, int)        {}
func (Nop) Update(int, int, float64) {}
func (Nop) Finish()                  {}

// Interactive reports whether f is a terminal worth drawing bars on.
func Interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
