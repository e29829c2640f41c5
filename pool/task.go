package pool

import "context"

// Func is the uniform execution interface for a task: the iteration item plus
// any extra positional and keyword arguments. The pool never introspects a
// task beyond invoking it.
type Func func(ctx context.Context, item any, args []any, kwargs map[string]any) (any, error)

// Call describes a single task: the callable reference and its arguments.
// A Call is immutable once submitted.
type Call struct {
	Fn     Func
	Item   any
	Args   []any
	Kwargs map[string]any
}

// Codec transports calls across the worker boundary. Implementations must
// reject values that cannot legally cross it, such as callables that are not
// reachable by reference on the far side, by returning a
// *SerializationError from Encode.
type Codec interface {
	Encode(Call) ([]byte, error)
	Decode([]byte) (Call, error)
}

// task is a Call tagged with its ordinal id, optionally in encoded form when
// the pool has a codec configured.
type task struct {
	id   int64
	call Call
	enc  []byte
}

// workChunk is an ordered batch of tasks dispatched to one worker as a unit.
type workChunk struct {
	id    int64
	tasks []task
}

// outcome holds either the value or the captured error for one task.
type outcome struct {
	id  int64
	val any
	err error
}

// chunkResult carries a chunk's outcomes back from a worker. Outcomes keep
// the chunk's internal order; chunks themselves complete in any order.
type chunkResult struct {
	id       int64
	outcomes []outcome
}
