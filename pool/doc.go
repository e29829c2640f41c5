// Package pool implements a reusable worker pool that executes chunked tasks
// and hands back outcomes by task id.
//
// A Pool maintains a fixed set of long-lived workers pulling chunks from a
// bounded input queue. Each worker executes the tasks of a chunk in sequence
// and pushes the chunk's outcomes to an output queue, where a collector files
// them into per-id result slots. Execution order across workers is
// unconstrained; retrieval is always by the id returned from Submit.
//
// # Basic Usage
//
//	p := pool.New(pool.WithWorkers(4))
//	defer p.Close()
//
//	id, err := p.Submit(ctx, pool.Call{
//	    Fn: func(ctx context.Context, item any, args []any, kwargs map[string]any) (any, error) {
//	        return item.(int) * 2, nil
//	    },
//	    Item: 21,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := p.Request(ctx, id) // 42
//
// A pool may be reused across independent submission batches, with different
// callables and arguments per submission; ids are assigned monotonically and
// never collide.
//
// # Error Handling
//
// Errors returned by a task's callable are captured per task. By default a
// captured error triggers one synchronous re-execution of the task in the
// goroutine calling Request; if that confirms the failure, the whole pool
// aborts and the authentic error is returned. With WithDebug the captured
// error simply becomes the task's outcome and processing continues.
//
// A panic escaping a callable is different: the worker dies without producing
// its chunk result, which is always fatal. The pool detects the dead worker,
// cancels everything in flight and surfaces a *WorkerCrash instead of
// blocking forever on the missing result.
//
// # Transport
//
// Submissions can optionally be routed through a Codec, modelling a boundary
// that callables and arguments must serialize across. Values the codec cannot
// represent are rejected at submission time with a *SerializationError,
// before any work starts.
package pool
