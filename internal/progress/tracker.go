package progress

import (
	"sync"
)

// MaxPercent is the upper bound of the normalized progress signal.
const MaxPercent = 100.0

// Tracker gates progress updates for a single task before they reach a
// Sink. The reported percentage is monotonically non-decreasing: updates
// at or below the last reported value are dropped, which hides
// out-of-order and duplicate subprocess lines. A Tracker is owned by one
// task's worker and never shared across tasks.
type Tracker struct {
	sink Sink

	mu          sync.Mutex
	lastPercent float64
}

// NewTracker creates a tracker feeding the given sink.
func NewTracker(sink Sink) *Tracker {
	if sink == nil {
		sink = NopSink{}
	}
	return &Tracker{sink: sink}
}

// Update reports a new percentage without metadata.
func (t *Tracker) Update(percent float64) {
	t.UpdateWithBitrate(percent, "")
}

// UpdateWithBitrate reports a new percentage plus an advisory bitrate.
func (t *Tracker) UpdateWithBitrate(percent float64, bitrate string) {
	if percent > MaxPercent {
		percent = MaxPercent
	}

	t.mu.Lock()
	if percent <= t.lastPercent {
		t.mu.Unlock()
		return
	}
	t.lastPercent = percent
	t.mu.Unlock()

	t.sink.Update(percent, bitrate)
}

// LastPercent returns the last reported percentage.
func (t *Tracker) LastPercent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPercent
}

// Describe updates the display label without touching the percentage.
func (t *Tracker) Describe(description string) {
	t.sink.Describe(description)
}

// Complete finalizes the task. Success forces the display to 100%.
func (t *Tracker) Complete(success bool, description string) {
	if success {
		t.mu.Lock()
		t.lastPercent = MaxPercent
		t.mu.Unlock()
	}
	t.sink.Complete(success, description)
}
