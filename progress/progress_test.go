package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every update it receives.
type recordingSink struct {
	mu       sync.Mutex
	updates  [][2]int64
	finished int
}

func (s *recordingSink) Update(completed, backlog int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, [2]int64{completed, backlog})
}

func (s *recordingSink) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished++
}

func (s *recordingSink) snapshot() ([][2]int64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]int64(nil), s.updates...), s.finished
}

func TestTrackerFinalUpdate(t *testing.T) {
	sink := &recordingSink{}
	tr := NewTracker(sink, 1000)

	tr.Submitted(10)
	for range 10 {
		tr.Done(1)
	}
	tr.Stop()

	updates, finished := sink.snapshot()
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, int64(10), last[0], "final update carries the full completed count")
	assert.Equal(t, int64(0), last[1], "backlog drains to zero")
	assert.Equal(t, 1, finished)
}

func TestTrackerMonotonic(t *testing.T) {
	sink := &recordingSink{}
	tr := NewTracker(sink, 1000)

	tr.Submitted(100)
	for range 100 {
		tr.Done(1)
		time.Sleep(time.Millisecond / 2)
	}
	tr.Stop()

	updates, _ := sink.snapshot()
	var prev int64 = -1
	for _, u := range updates {
		require.GreaterOrEqual(t, u[0], prev, "completed count never decreases")
		prev = u[0]
	}
}

func TestTrackerNeverBlocks(t *testing.T) {
	// A sink slower than the delta rate must not stall the producers.
	sink := &slowSink{}
	tr := NewTracker(sink, 5)

	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Submitted(100000)
		for range 100000 {
			tr.Done(1)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked on progress delivery")
	}
	tr.Stop()

	assert.Equal(t, int64(100000), tr.Completed())
	assert.Equal(t, int64(0), tr.Backlog())
}

type slowSink struct{}

func (s *slowSink) Update(completed, backlog int64) { time.Sleep(10 * time.Millisecond) }
func (s *slowSink) Finish()                         {}

func TestTrackerStopIdempotent(t *testing.T) {
	sink := &recordingSink{}
	tr := NewTracker(sink, 0)
	tr.Submitted(1)
	tr.Done(1)
	tr.Stop()
	tr.Stop()

	_, finished := sink.snapshot()
	assert.Equal(t, 1, finished)
}
