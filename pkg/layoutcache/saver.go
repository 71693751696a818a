package layoutcache

import (
	"time"

	"github.com/vanderheijden86/knotwork/pkg/watcher"
)

// Saver debounces cache writes so micro settle/wake cycles during
// interaction produce roughly one write per settle event instead of one
// per frame. Only settled layouts should be scheduled; that judgement
// belongs to the caller holding the simulator.
type Saver struct {
	store Store
	deb   *watcher.Debouncer
	onErr func(error)
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithDelay overrides the debounce window (default 500ms).
func WithDelay(d time.Duration) SaverOption {
	return func(s *Saver) {
		s.deb = watcher.NewDebouncer(d)
	}
}

// WithOnError sets the callback for failed writes. Failures degrade to
// cache-miss behavior on the next load, so by default they are dropped.
func WithOnError(fn func(error)) SaverOption {
	return func(s *Saver) {
		s.onErr = fn
	}
}

// NewSaver creates a debounced writer over store.
func NewSaver(store Store, opts ...SaverOption) *Saver {
	s := &Saver{
		store: store,
		deb:   watcher.NewDebouncer(watcher.DefaultDebounceDuration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule queues entry for writing after the debounce window, replacing
// any previously queued entry.
func (s *Saver) Schedule(entry *Entry) {
	s.deb.Trigger(func() {
		s.write(entry)
	})
}

// Cancel discards any queued write. Called when the graph is replaced so a
// stale layout never lands on disk.
func (s *Saver) Cancel() {
	s.deb.Cancel()
}

// Flush writes entry immediately, discarding whatever was queued. Used on
// shutdown.
func (s *Saver) Flush(entry *Entry) {
	s.deb.Flush(func() {
		s.write(entry)
	})
}

// Delay returns the debounce window.
func (s *Saver) Delay() time.Duration {
	return s.deb.Duration()
}

func (s *Saver) write(entry *Entry) {
	if err := s.store.Save(entry); err != nil && s.onErr != nil {
		s.onErr(err)
	}
}
