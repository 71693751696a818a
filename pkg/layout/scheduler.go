package layout

import (
	"sync"
	"time"
)

// Scheduler drives the step loop. The simulation itself has no opinion
// about frame callbacks: a host can install an IntervalScheduler, pump
// Step from its own event loop, or run `for sim.Step() {}` to settle
// synchronously.
//
// Start begins invoking step repeatedly until step returns false or Stop
// is called. Implementations must never invoke step concurrently with
// itself.
type Scheduler interface {
	Start(step func() bool)
	Stop()
}

// IntervalScheduler steps on a fixed wall-clock period from its own
// goroutine. Start replaces any loop already running.
type IntervalScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	cancel chan struct{}
}

// DefaultStepInterval approximates a 60fps frame budget.
const DefaultStepInterval = 16 * time.Millisecond

// NewIntervalScheduler creates a scheduler stepping every interval.
// Non-positive intervals fall back to DefaultStepInterval.
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = DefaultStepInterval
	}
	return &IntervalScheduler{interval: interval}
}

// Start launches the ticker loop, stopping any previous one first.
func (s *IntervalScheduler) Start(step func() bool) {
	s.mu.Lock()
	if s.cancel != nil {
		close(s.cancel)
	}
	cancel := make(chan struct{})
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				if !step() {
					return
				}
			}
		}
	}()
}

// Stop halts the loop. Safe to call when nothing is running.
func (s *IntervalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
	}
}

// Interval returns the configured step period.
func (s *IntervalScheduler) Interval() time.Duration {
	return s.interval
}
