package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Status icons
const (
	IconSuccess = "✓"
	IconFailure = "✗"
)

// rowStepPercent is the reporting granularity of row sinks; finer
// updates would flood the combined display under concurrency.
const rowStepPercent = 10.0

// Sink is an abstraction over where progress is displayed: a single
// inline bar for one task, or one serialized row per concurrent task.
type Sink interface {
	Update(percent float64, bitrate string)
	Describe(description string)
	Complete(success bool, description string)
}

// NopSink discards all updates. Used in quiet and url-only modes.
type NopSink struct{}

func (NopSink) Update(float64, string) {}
func (NopSink) Describe(string) {}
func (NopSink) Complete(bool, string) {}

// BarSink renders a single inline progress bar.
type BarSink struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

// NewBarSink creates an inline bar writing to out.
func NewBarSink(out io.Writer, description string) *BarSink {
	bar := progressbar.NewOptions64(
		int64(MaxPercent),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	return &BarSink{bar: bar, out: out}
}

// Update implements Sink.
func (s *BarSink) Update(percent float64, bitrate string) {
	_ = s.bar.Set(int(percent))
}

// Describe implements Sink.
func (s *BarSink) Describe(description string) {
	s.bar.Describe(description)
}

// Complete implements Sink.
func (s *BarSink) Complete(success bool, description string) {
	if success {
		_ = s.bar.Finish()
		fmt.Fprintf(s.out, "%s %s\n", IconSuccess, description)
		return
	}
	_ = s.bar.Clear()
	fmt.Fprintf(s.out, "%s %s\n", IconFailure, description)
}

// Display is the shared progress surface of a concurrent batch. All row
// writes are serialized through its mutex; workers never touch the
// underlying writer directly.
type Display struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDisplay creates a display writing to out.
func NewDisplay(out io.Writer) *Display {
	return &Display{out: out}
}

// NewRow creates the sink for one task's row.
func (d *Display) NewRow(description string) *RowSink {
	return &RowSink{display: d, description: description}
}

func (d *Display) printf(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format, args...)
}

// RowSink reports one task's progress as periodic status rows on the
// shared display. It is owned by a single worker.
type RowSink struct {
	display     *Display
	description string

	mu       sync.Mutex
	lastStep float64
}

// Update implements Sink, printing a row each time progress crosses
// another reporting step.
func (s *RowSink) Update(percent float64, bitrate string) {
	s.mu.Lock()
	if percent < s.lastStep+rowStepPercent {
		s.mu.Unlock()
		return
	}
	s.lastStep = percent
	desc := s.description
	s.mu.Unlock()

	if bitrate != "" {
		s.display.printf("[%3.0f%%] %s (%s)\n", percent, desc, bitrate)
		return
	}
	s.display.printf("[%3.0f%%] %s\n", percent, desc)
}

// Describe implements Sink.
func (s *RowSink) Describe(description string) {
	s.mu.Lock()
	s.description = description
	s.mu.Unlock()
}

// Complete implements Sink.
func (s *RowSink) Complete(success bool, description string) {
	icon := IconSuccess
	if !success {
		icon = IconFailure
	}
	s.display.printf("%s %s\n", icon, description)
}
