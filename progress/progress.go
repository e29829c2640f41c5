// Package progress aggregates per-worker completion deltas into a monotonic
// completed count and a backlog indicator, and publishes composite updates
// to a display sink at a bounded rate.
//
// Reporting is strictly best-effort: recording a delta is an atomic add plus
// a non-blocking nudge to the publisher, so a slow or busy sink drops
// intermediate updates rather than ever stalling a worker.
package progress

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// DefaultRefreshHz bounds how often a sink is refreshed. Terminal renderers
// flicker and waste cycles beyond roughly this rate.
const DefaultRefreshHz = 15

// Sink consumes aggregated progress updates. Update receives the monotonic
// completed count and the current backlog (submitted minus completed);
// Finish is called exactly once, after the final update.
type Sink interface {
	Update(completed, backlog int64)
	Finish()
}

// Tracker merges progress deltas from any number of goroutines.
// All methods are safe for concurrent use and none of them block.
type Tracker struct {
	submitted atomic.Int64
	completed atomic.Int64

	notify chan struct{}
	quit   chan struct{}
	done   chan struct{}

	limiter *rate.Limiter
	sink    Sink

	stopOnce sync.Once
}

// NewTracker creates a tracker publishing to sink at most refreshHz times
// per second (DefaultRefreshHz when zero) and starts its publisher.
func NewTracker(sink Sink, refreshHz float64) *Tracker {
	if refreshHz <= 0 {
		refreshHz = DefaultRefreshHz
	}

	t := &Tracker{
		notify:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(refreshHz), 1),
		sink:    sink,
	}
	go t.publish()
	return t
}

// Submitted records n newly submitted tasks.
func (t *Tracker) Submitted(n int64) {
	t.submitted.Add(n)
	t.poke()
}

// Done records n completed tasks.
func (t *Tracker) Done(n int64) {
	t.completed.Add(n)
	t.poke()
}

// Completed returns the monotonic completed count.
func (t *Tracker) Completed() int64 { return t.completed.Load() }

// Backlog returns the submitted-but-not-yet-completed count.
func (t *Tracker) Backlog() int64 {
	b := t.submitted.Load() - t.completed.Load()
	if b < 0 {
		b = 0
	}
	return b
}

// poke nudges the publisher, dropping the nudge when one is already pending.
func (t *Tracker) poke() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

func (t *Tracker) publish() {
	defer close(t.done)

	for {
		select {
		case <-t.quit:
			t.sink.Update(t.Completed(), t.Backlog())
			t.sink.Finish()
			return
		case <-t.notify:
			if !t.limiter.Allow() {
				continue
			}
			t.sink.Update(t.Completed(), t.Backlog())
		}
	}
}

// Stop publishes a final update regardless of the refresh bound, calls the
// sink's Finish and releases the publisher. Stop is idempotent and waits for
// the publisher to exit.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
	<-t.done
}
