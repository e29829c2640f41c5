package parfor

import (
	"context"
	"errors"
	"iter"
	"runtime"

	"go.uber.org/zap"

	"github.com/parfor-go/parfor/chunk"
	"github.com/parfor-go/parfor/pool"
	"github.com/parfor-go/parfor/progress"
)

// Func is the per-item callable for the Map family: it receives one item
// from the input and returns its result.
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// ArgsFunc additionally receives the extra positional and keyword arguments
// configured with WithArgs and WithKwargs.
type ArgsFunc[T, R any] func(ctx context.Context, item T, args []any, kwargs map[string]any) (R, error)

// Outcome is a per-task result in error-capture mode: the value, or the
// error captured for that index.
type Outcome[R any] struct {
	Value R
	Err   error
}

// ErrLengthRequired is returned before any work starts when a source
// without an intrinsic length is used without a WithLength hint.
var ErrLengthRequired = errors.New("parfor: length hint required for a source without intrinsic length")

// Map applies fn to every item and returns the results in input order. Work
// is distributed over a worker pool unless the task count is below the
// serial threshold, in which case everything runs in the calling goroutine
// and no pool is ever touched.
//
// Map fails fast: if any task's error is confirmed, the in-flight operation
// is aborted, no result slice is returned, and the confirmed error
// propagates with its identity intact.
func Map[T, R any](ctx context.Context, items []T, fn Func[T, R], opts ...Option) ([]R, error) {
	conf := newConfig(opts)
	outs, err := run(ctx, items, plain(fn), conf, false)
	if err != nil {
		return nil, err
	}
	return values(outs), nil
}

// MapArgs is Map for callables taking the extra arguments configured with
// WithArgs and WithKwargs.
func MapArgs[T, R any](ctx context.Context, items []T, fn ArgsFunc[T, R], opts ...Option) ([]R, error) {
	conf := newConfig(opts)
	outs, err := run(ctx, items, fn, conf, false)
	if err != nil {
		return nil, err
	}
	return values(outs), nil
}

// MapOutcomes is the error-capture variant of Map: the returned slice
// always has one entry per item, mixing values and captured errors by
// index. The error return is reserved for fatal failures such as a worker
// crash, where no complete outcome list can exist.
func MapOutcomes[T, R any](ctx context.Context, items []T, fn Func[T, R], opts ...Option) ([]Outcome[R], error) {
	conf := newConfig(opts)
	return run(ctx, items, plain(fn), conf, true)
}

// MapSeq is Map over a lazy source. The source is consumed incrementally,
// one chunk at a time, and is never materialized up front; WithLength must
// supply the task count, since the sequence cannot provide one.
func MapSeq[T, R any](ctx context.Context, src iter.Seq[T], fn Func[T, R], opts ...Option) ([]R, error) {
	conf := newConfig(opts)
	outs, err := runSeq(ctx, src, plain(fn), conf, false)
	if err != nil {
		return nil, err
	}
	return values(outs), nil
}

// Bind wraps fn and its options ahead of time, returning a transform that
// maps the bound callable over a slice.
func Bind[T, R any](fn Func[T, R], opts ...Option) func(context.Context, []T) ([]R, error) {
	return func(ctx context.Context, items []T) ([]R, error) {
		return Map(ctx, items, fn, opts...)
	}
}

func plain[T, R any](fn Func[T, R]) ArgsFunc[T, R] {
	return func(ctx context.Context, item T, _ []any, _ map[string]any) (R, error) {
		return fn(ctx, item)
	}
}

func values[R any](outs []Outcome[R]) []R {
	res := make([]R, len(outs))
	for i, o := range outs {
		res[i] = o.Value
	}
	return res
}

func run[T, R any](ctx context.Context, items []T, fn ArgsFunc[T, R], conf *config, debug bool) ([]Outcome[R], error) {
	if len(items) < conf.serial {
		return runSerial(ctx, items, fn, conf, debug)
	}
	return runParallel(ctx, items, fn, conf, debug)
}

// runSerial executes every task synchronously in the caller.
func runSerial[T, R any](ctx context.Context, items []T, fn ArgsFunc[T, R], conf *config, debug bool) ([]Outcome[R], error) {
	outs := make([]Outcome[R], len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := fn(ctx, item, conf.args, conf.kwargs)
		if err != nil {
			if !debug {
				return nil, err
			}
			outs[i] = Outcome[R]{Err: err}
			continue
		}
		outs[i] = Outcome[R]{Value: v}
	}
	return outs, nil
}

func runParallel[T, R any](ctx context.Context, items []T, fn ArgsFunc[T, R], conf *config, debug bool) ([]Outcome[R], error) {
	p, tracker, owned := acquirePool(conf, len(items), debug)
	if owned {
		defer func() { _ = p.Close() }()
	}
	if tracker != nil {
		defer tracker.Stop()
	}

	size := conf.chunkSize
	if size <= 0 {
		size = chunk.ForWorkers(len(items), p.Workers(), conf.chunksPerWorker)
	}
	conf.log.Debug("dispatching",
		zap.Int("tasks", len(items)),
		zap.Int("chunk_size", size),
		zap.Int("workers", p.Workers()))

	pf := asPoolFunc(fn)
	ids := make([]int64, 0, len(items))
	for _, part := range chunk.Split(items, size) {
		batch, err := p.SubmitChunk(ctx, callsFor(pf, part, conf)...)
		if err != nil {
			return nil, err
		}
		ids = append(ids, batch...)
	}

	return gather[R](ctx, p, ids, debug)
}

func runSeq[T, R any](ctx context.Context, src iter.Seq[T], fn ArgsFunc[T, R], conf *config, debug bool) ([]Outcome[R], error) {
	if !conf.hasLength || conf.length < 0 {
		return nil, ErrLengthRequired
	}

	if conf.length < conf.serial {
		var outs []Outcome[R]
		for item := range src {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			v, err := fn(ctx, item, conf.args, conf.kwargs)
			if err != nil {
				if !debug {
					return nil, err
				}
				outs = append(outs, Outcome[R]{Err: err})
				continue
			}
			outs = append(outs, Outcome[R]{Value: v})
		}
		return outs, nil
	}

	p, tracker, owned := acquirePool(conf, conf.length, debug)
	if owned {
		defer func() { _ = p.Close() }()
	}
	if tracker != nil {
		defer tracker.Stop()
	}

	size := conf.chunkSize
	if size <= 0 {
		size = chunk.ForWorkers(conf.length, p.Workers(), conf.chunksPerWorker)
	}

	pf := asPoolFunc(fn)
	var ids []int64
	for part := range chunk.SplitSeq(src, size) {
		batch, err := p.SubmitChunk(ctx, callsFor(pf, part, conf)...)
		if err != nil {
			return nil, err
		}
		ids = append(ids, batch...)
	}

	return gather[R](ctx, p, ids, debug)
}

// asPoolFunc adapts a typed callable to the pool's uniform task interface.
func asPoolFunc[T, R any](fn ArgsFunc[T, R]) pool.Func {
	return func(ctx context.Context, item any, args []any, kwargs map[string]any) (any, error) {
		return fn(ctx, item.(T), args, kwargs)
	}
}

func callsFor[T any](pf pool.Func, part []T, conf *config) []pool.Call {
	calls := make([]pool.Call, len(part))
	for i, item := range part {
		calls[i] = pool.Call{Fn: pf, Item: item, Args: conf.args, Kwargs: conf.kwargs}
	}
	return calls
}

// gather retrieves outcomes in task-id order, which is input order.
func gather[R any](ctx context.Context, p *pool.Pool, ids []int64, debug bool) ([]Outcome[R], error) {
	outs := make([]Outcome[R], len(ids))
	for i, id := range ids {
		val, err := p.Request(ctx, id)
		if err != nil {
			var te *pool.TaskError
			if debug && errors.As(err, &te) {
				outs[i] = Outcome[R]{Err: te.Err}
				continue
			}
			return nil, err
		}
		if v, ok := val.(R); ok {
			outs[i] = Outcome[R]{Value: v}
		}
	}
	return outs, nil
}

// acquirePool returns the caller-supplied pool, or creates one owned by this
// call with progress wired in.
func acquirePool(conf *config, total int, debug bool) (*pool.Pool, *progress.Tracker, bool) {
	if conf.pool != nil {
		return conf.pool, nil, false
	}

	workers := conf.workers
	if conf.fraction > 0 {
		workers = int(conf.fraction * float64(runtime.GOMAXPROCS(0)))
		if workers < 1 {
			workers = 1
		}
	}

	popts := []pool.Option{
		pool.WithWorkers(workers),
		pool.WithLogger(conf.log),
	}
	if debug {
		popts = append(popts, pool.WithDebug(true))
	}

	var tracker *progress.Tracker
	sink := conf.sink
	if sink == nil && (conf.bar || conf.backlog) {
		sink = newBarSink(conf, total, pool.DefaultQueueFactor*workers)
	}
	if sink != nil {
		tracker = progress.NewTracker(sink, 0)
		popts = append(popts, pool.WithProgress(tracker))
	}

	return pool.New(popts...), tracker, true
}
