package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration coalesces bursts of triggers into one callback.
// Shared by the file watcher and the layout cache saver.
const DefaultDebounceDuration = 500 * time.Millisecond

// Debouncer delays a callback until triggers stop arriving for the
// configured duration. Each Trigger resets the timer and replaces the
// pending callback; Cancel discards whatever is pending.
type Debouncer struct {
	duration time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer. Non-positive durations fall back to
// DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Trigger schedules fn to run after the debounce window, resetting the
// window and dropping any previously pending callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel discards any pending callback. Safe to call when nothing is
// pending.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Duration returns the debounce window.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// Flush runs fn immediately, cancelling any pending callback first. Used
// on shutdown so a pending write is not lost.
func (d *Debouncer) Flush(fn func()) {
	d.Cancel()
	fn()
}
