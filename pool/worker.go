package pool

import (
	"context"
	"runtime/debug"
)

// worker pulls chunks from the input queue and executes their tasks in
// sequence, pushing one chunkResult per chunk. A panic escaping a callable
// means the worker dies without producing its result; the deferred recover
// turns that into a *WorkerCrash so the pool fails fast instead of blocking
// forever on the missing outcomes.
func (p *Pool) worker(ctx context.Context, id int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerCrash{Worker: id, Value: r, Stack: debug.Stack()}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch, ok := <-p.in:
			if !ok {
				return nil
			}

			res := chunkResult{id: ch.id, outcomes: make([]outcome, 0, len(ch.tasks))}
			for _, t := range ch.tasks {
				res.outcomes = append(res.outcomes, p.runTask(ctx, t))
				if tr := p.conf.tracker; tr != nil {
					tr.Done(1)
				}
			}

			select {
			case p.out <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// runTask executes one task. Callable errors are captured as outcomes, never
// returned: only a panic aborts the worker.
func (p *Pool) runTask(ctx context.Context, t task) outcome {
	call := t.call
	if t.enc != nil {
		decoded, err := p.conf.codec.Decode(t.enc)
		if err != nil {
			p.stats.errored.Add(1)
			return outcome{id: t.id, err: &RemoteError{Msg: err.Error()}}
		}
		call = decoded
	}

	val, err := call.Fn(ctx, call.Item, call.Args, call.Kwargs)
	if err != nil {
		if p.conf.codec != nil {
			// Only the message survives the trip back across the boundary.
			err = &RemoteError{Msg: err.Error()}
		}
		p.stats.errored.Add(1)
		return outcome{id: t.id, err: err}
	}
	return outcome{id: t.id, val: val}
}
