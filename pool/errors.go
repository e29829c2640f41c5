package pool

import "fmt"

// SerializationError reports a task that cannot cross the worker boundary.
// It is returned at submission time, before any work starts, and nothing is
// enqueued for the offending call.
type SerializationError struct {
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serialization: %s: %v", e.Reason, e.Err)
	}
	return "serialization: " + e.Reason
}

func (e *SerializationError) Unwrap() error { return e.Err }

// WorkerCrash reports a worker that terminated without producing its chunk
// result. A crash is always fatal: it aborts the pool regardless of debug
// mode, since the missing outcomes can never be recovered.
type WorkerCrash struct {
	Worker int
	Value  any
	Stack  []byte
}

func (e *WorkerCrash) Error() string {
	return fmt.Sprintf("worker %d crashed: %v", e.Worker, e.Value)
}

// Unwrap returns the panic value when it was an error, so errors.Is and
// errors.As see through the crash wrapper.
func (e *WorkerCrash) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RemoteError is a task error flattened to its message while crossing back
// from a worker through a codec. The non-debug path re-executes the task in
// the caller precisely to replace this with the authentic error.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string { return e.Msg }

// TaskError wraps a per-task failure captured as an outcome in debug mode.
type TaskError struct {
	ID  int64
	Err error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %d: %v", e.ID, e.Err) }

func (e *TaskError) Unwrap() error { return e.Err }

// PoolStateError reports misuse of the pool surface, such as requesting an
// id that was never submitted. It is returned immediately and has no side
// effects on the pool.
type PoolStateError struct {
	Op  string
	Msg string
}

func (e *PoolStateError) Error() string { return "pool: " + e.Op + ": " + e.Msg }
