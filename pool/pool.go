package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pool is a fixed set of long-lived workers consuming chunks from a bounded
// input queue. It is owned by the caller that created it: Open (or the first
// Submit) spawns the workers, Close releases them. A Pool may outlive a
// single batch and be reused for independent submissions.
type Pool struct {
	conf *config

	mu     sync.Mutex
	opened bool
	closed bool

	in  chan workChunk
	out chan chunkResult

	cancel        context.CancelFunc
	workers       *errgroup.Group
	collectorDone chan struct{}

	// submitters guards against Close racing a Submit that is about to send
	// on the input queue.
	submitters sync.WaitGroup

	sm    sync.Mutex
	slots map[int64]*slot

	nextTask  atomic.Int64
	nextChunk atomic.Int64

	fatal     error
	fatalOnce sync.Once
	dead      chan struct{}
	term      chan struct{}

	stats statsCounters
}

// slot is the result cell for one task id. It is filled exactly once, and
// retains the caller-side original call so a captured failure can be
// re-executed without crossing the boundary again.
type slot struct {
	call Call
	done chan struct{}
	val  any
	err  error
}

// New creates a pool without starting any workers; worker startup is
// deferred to Open or the first Submit.
func New(opts ...Option) *Pool {
	conf := defaultConfig()
	for _, opt := range opts {
		opt(conf)
	}

	return &Pool{
		conf:  conf,
		slots: make(map[int64]*slot),
		dead:  make(chan struct{}),
		term:  make(chan struct{}),
	}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.conf.workers }

// QueueDepth returns the bound of the input and output queues, in chunks.
func (p *Pool) QueueDepth() int { return p.conf.queueFactor * p.conf.workers }

// Debug reports whether the pool captures task errors as outcomes.
func (p *Pool) Debug() bool { return p.conf.debug }

// Open starts the workers and the result collector. Calling Open is
// optional: the first Submit opens the pool lazily. The context bounds the
// lifetime of the workers: cancelling it aborts the pool, and blocked Submit
// and Request calls fail with the cancellation error.
func (p *Pool) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openLocked(ctx)
}

func (p *Pool) openLocked(ctx context.Context) error {
	if p.closed {
		return &PoolStateError{Op: "open", Msg: "pool is closed"}
	}
	if p.opened {
		return nil
	}

	depth := p.QueueDepth()
	p.in = make(chan workChunk, depth)
	p.out = make(chan chunkResult, depth)
	p.collectorDone = make(chan struct{})

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.workers = &errgroup.Group{}
	for i := range p.conf.workers {
		p.workers.Go(func() error {
			if err := p.worker(ctx, i); err != nil {
				p.abort(err)
				return err
			}
			return nil
		})
	}
	go p.collect(ctx)

	// A cancelled pool context is terminal: without this, cancellation would
	// strand Request on slots that can never fill and Submit on a queue no
	// worker consumes. Close is exempt, since it drains the queues before
	// cancelling.
	go func() {
		<-ctx.Done()
		p.mu.Lock()
		closing := p.closed
		p.mu.Unlock()
		if !closing {
			p.abort(ctx.Err())
		}
	}()

	p.opened = true
	p.conf.log.Info("pool opened",
		zap.Int("workers", p.conf.workers),
		zap.Int("queue_depth", depth),
		zap.Bool("debug", p.conf.debug))
	return nil
}

// Submit queues a single task and returns its id, the sole key for
// retrieving the outcome. Submit blocks while the input queue is full.
func (p *Pool) Submit(ctx context.Context, call Call) (int64, error) {
	ids, err := p.SubmitChunk(ctx, call)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// SubmitChunk queues an ordered batch of tasks dispatched to a single worker
// as one unit, and returns their ids in batch order. When a codec is
// configured, every call is encoded first; an encoding failure rejects the
// whole chunk before anything is enqueued.
func (p *Pool) SubmitChunk(ctx context.Context, calls ...Call) ([]int64, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	for _, c := range calls {
		if c.Fn == nil {
			return nil, &PoolStateError{Op: "submit", Msg: "nil callable"}
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &PoolStateError{Op: "submit", Msg: "pool is closed"}
	}
	// A lazily opened pool must outlive this submission's context; only an
	// explicit Open ties worker lifetime to a caller context.
	if err := p.openLocked(context.WithoutCancel(ctx)); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.submitters.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	if err := p.fatalErr(); err != nil {
		return nil, err
	}

	tasks := make([]task, len(calls))
	for i, c := range calls {
		tasks[i] = task{call: c}
		if p.conf.codec != nil {
			enc, err := p.conf.codec.Encode(c)
			if err != nil {
				return nil, err
			}
			tasks[i].enc = enc
		}
	}

	ids := make([]int64, len(tasks))
	p.sm.Lock()
	for i := range tasks {
		id := p.nextTask.Add(1) - 1
		tasks[i].id = id
		ids[i] = id
		p.slots[id] = &slot{call: tasks[i].call, done: make(chan struct{})}
	}
	p.sm.Unlock()

	ch := workChunk{id: p.nextChunk.Add(1) - 1, tasks: tasks}
	select {
	case p.in <- ch:
	case <-p.dead:
		p.releaseSlots(ids)
		return nil, p.fatal
	case <-ctx.Done():
		p.releaseSlots(ids)
		return nil, ctx.Err()
	}

	if t := p.conf.tracker; t != nil {
		t.Submitted(int64(len(calls)))
	}
	p.stats.submitted.Add(int64(len(calls)))
	p.stats.chunks.Add(1)
	return ids, nil
}

// Request blocks until the outcome for id is available and returns it.
// Requesting an id that was never submitted, or one already retrieved, is a
// usage error. Retrieval releases the slot.
//
// In the default mode a captured task error is confirmed by re-executing the
// original call in this goroutine: if the re-execution succeeds its value is
// the outcome, otherwise the pool aborts and the authentic error is
// returned. With WithDebug the captured error is returned as a *TaskError
// and the pool keeps running.
func (p *Pool) Request(ctx context.Context, id int64) (any, error) {
	p.sm.Lock()
	s, ok := p.slots[id]
	p.sm.Unlock()
	if !ok {
		return nil, &PoolStateError{Op: "request", Msg: fmt.Sprintf("task %d was never submitted", id)}
	}

	// Prefer a filled slot over a concurrent shutdown.
	select {
	case <-s.done:
	default:
		select {
		case <-s.done:
		case <-p.dead:
			return nil, p.fatal
		case <-p.term:
			// term and dead may both be closed; the recorded fatal error is
			// the one the caller needs.
			if err := p.fatalErr(); err != nil {
				return nil, err
			}
			return nil, &PoolStateError{Op: "request", Msg: fmt.Sprintf("pool closed before task %d completed", id)}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.sm.Lock()
	delete(p.slots, id)
	p.sm.Unlock()

	if s.err == nil {
		return s.val, nil
	}
	if p.conf.debug {
		return nil, &TaskError{ID: id, Err: s.err}
	}

	// The error crossed the worker boundary and may have lost its identity.
	// Re-execute the original call here to recover the authentic one.
	p.stats.retried.Add(1)
	p.conf.log.Warn("task failed in worker, re-executing in caller",
		zap.Int64("task", id), zap.Error(s.err))

	val, err := s.call.Fn(ctx, s.call.Item, s.call.Args, s.call.Kwargs)
	if err != nil {
		p.stats.failed.Add(1)
		p.abort(err)
		return nil, err
	}
	return val, nil
}

// Close terminates the workers, drains the queues and releases every
// resource the pool holds. It is idempotent, safe on all exit paths, and
// returns the pool's fatal error if it aborted.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	opened := p.opened
	p.mu.Unlock()

	if !opened {
		close(p.term)
		return nil
	}

	// New submissions are rejected at this point; wait out the in-flight
	// ones so closing the input queue cannot race a send.
	p.submitters.Wait()
	close(p.in)

	err := p.workers.Wait()
	p.cancel()
	<-p.collectorDone
	close(p.term)

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if ferr := p.fatalErr(); ferr != nil {
		err = ferr
	}

	p.conf.log.Info("pool closed",
		zap.Int64("submitted", p.stats.submitted.Load()),
		zap.Int64("collected", p.stats.collected.Load()),
		zap.Error(err))
	return err
}

// abort records the first fatal error, cancels the workers and wakes every
// blocked Submit and Request. Later errors are discarded; the first one is
// what the caller observes.
func (p *Pool) abort(err error) {
	p.fatalOnce.Do(func() {
		p.fatal = err
		close(p.dead)
		if p.cancel != nil {
			p.cancel()
		}
		p.conf.log.Error("pool aborted", zap.Error(err))
	})
}

// fatalErr returns the fatal error if the pool has aborted, nil otherwise.
func (p *Pool) fatalErr() error {
	select {
	case <-p.dead:
		return p.fatal
	default:
		return nil
	}
}

func (p *Pool) releaseSlots(ids []int64) {
	p.sm.Lock()
	for _, id := range ids {
		delete(p.slots, id)
	}
	p.sm.Unlock()
}
