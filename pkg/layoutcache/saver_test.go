package layoutcache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vanderheijden86/knotwork/pkg/graph"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// memStore records saves in memory so tests can observe debounce behavior.
type memStore struct {
	mu      sync.Mutex
	saved   []*Entry
	saveErr error
}

func (m *memStore) Load() (*Entry, error) { return nil, nil }

func (m *memStore) Save(entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, entry)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *memStore) last() *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

func entryWithCount(n int) *Entry {
	edges := make([]model.Edge, n)
	for i := range edges {
		edges[i] = ref("a", "b")
	}
	return NewEntry([]graph.Position{{ID: "a"}}, edges)
}

func TestSaverCoalescesRapidSchedules(t *testing.T) {
	store := &memStore{}
	saver := NewSaver(store, WithDelay(40*time.Millisecond))

	for i := 1; i <= 5; i++ {
		saver.Schedule(entryWithCount(i))
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if got := store.count(); got != 1 {
		t.Fatalf("saves = %d, want 1", got)
	}
	if got := store.last(); got.LinkCount != 5 {
		t.Errorf("saved LinkCount = %d, want the last scheduled entry (5)", got.LinkCount)
	}
}

func TestSaverCancelDiscardsPending(t *testing.T) {
	store := &memStore{}
	saver := NewSaver(store, WithDelay(40*time.Millisecond))

	saver.Schedule(entryWithCount(1))
	saver.Cancel()

	time.Sleep(120 * time.Millisecond)

	if got := store.count(); got != 0 {
		t.Errorf("saves = %d, want 0 after Cancel", got)
	}
}

func TestSaverFlushWritesImmediately(t *testing.T) {
	store := &memStore{}
	saver := NewSaver(store, WithDelay(time.Hour))

	saver.Schedule(entryWithCount(1))
	saver.Flush(entryWithCount(2))

	if got := store.count(); got != 1 {
		t.Fatalf("saves = %d, want 1 immediately after Flush", got)
	}
	if got := store.last(); got.LinkCount != 2 {
		t.Errorf("flushed LinkCount = %d, want 2", got.LinkCount)
	}

	// The hour-long pending schedule was cancelled by Flush.
	time.Sleep(50 * time.Millisecond)
	if got := store.count(); got != 1 {
		t.Errorf("saves = %d, want still 1", got)
	}
}

func TestSaverReportsStoreErrors(t *testing.T) {
	wantErr := errors.New("disk full")
	store := &memStore{saveErr: wantErr}

	errCh := make(chan error, 1)
	saver := NewSaver(store,
		WithDelay(10*time.Millisecond),
		WithOnError(func(err error) { errCh <- err }),
	)

	saver.Schedule(entryWithCount(1))

	select {
	case err := <-errCh:
		if !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want %v", err, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatal("no error reported within 1s")
	}
}

func TestSaverDefaultDelay(t *testing.T) {
	saver := NewSaver(&memStore{})
	if saver.Delay() != 500*time.Millisecond {
		t.Errorf("Delay() = %v, want 500ms", saver.Delay())
	}
}
