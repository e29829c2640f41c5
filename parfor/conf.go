package parfor

import (
	"go.uber.org/zap"

	"github.com/parfor-go/parfor/pool"
	"github.com/parfor-go/parfor/progress"
)

const (
	// DefaultSerialThreshold is the task count below which execution stays
	// in the caller and no pool is ever touched.
	DefaultSerialThreshold = 4

	// defaultChunksPerWorker drives the chunk-size heuristic: small enough
	// to amortize queue crossings, large enough that workers do not starve
	// behind one long chunk. Tunable, not a contract.
	defaultChunksPerWorker = 4
)

// Option is a functional option for the Map family of calls.
type Option func(*config)

type config struct {
	args   []any
	kwargs map[string]any

	length    int
	hasLength bool

	desc    string
	bar     bool
	backlog bool
	sink    progress.Sink

	workers         int
	fraction        float64
	serial          int
	chunkSize       int
	chunksPerWorker int

	pool *pool.Pool
	log  *zap.Logger
}

func newConfig(opts []Option) *config {
	c := &config{
		workers:         pool.DefaultWorkers(),
		serial:          DefaultSerialThreshold,
		chunksPerWorker: defaultChunksPerWorker,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithArgs sets extra positional arguments passed to every invocation of an
// ArgsFunc callable.
func WithArgs(args ...any) Option {
	return func(c *config) { c.args = args }
}

// WithKwargs sets extra keyword arguments passed to every invocation of an
// ArgsFunc callable.
func WithKwargs(kwargs map[string]any) Option {
	return func(c *config) { c.kwargs = kwargs }
}

// WithLength supplies the task count for sources without an intrinsic
// length. It is required for MapSeq.
func WithLength(n int) Option {
	return func(c *config) {
		c.length = n
		c.hasLength = true
	}
}

// WithDescription labels the progress bar.
func WithDescription(desc string) Option {
	return func(c *config) { c.desc = desc }
}

// WithBar enables the primary progress indicator.
func WithBar(enabled bool) Option {
	return func(c *config) { c.bar = enabled }
}

// WithBacklogBar enables the task-buffer indicator showing how many
// submitted tasks are still outstanding.
func WithBacklogBar(enabled bool) Option {
	return func(c *config) { c.backlog = enabled }
}

// WithSink replaces the terminal bars with a custom progress sink.
func WithSink(s progress.Sink) Option {
	return func(c *config) { c.sink = s }
}

// WithWorkers sets the worker count for pools created by the call.
// If not specified, defaults to pool.DefaultWorkers().
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithWorkerFraction sizes created pools as a fraction of the available
// processing units, minimum one worker.
func WithWorkerFraction(f float64) Option {
	return func(c *config) {
		if f > 0 {
			c.fraction = f
		}
	}
}

// WithSerialThreshold sets the task count below which execution is forced
// serial, default DefaultSerialThreshold.
func WithSerialThreshold(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.serial = n
		}
	}
}

// WithChunkSize overrides the chunk-size heuristic with an explicit size.
func WithChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithChunksPerWorker tunes the chunk-size heuristic.
func WithChunksPerWorker(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunksPerWorker = n
		}
	}
}

// WithPool reuses a caller-supplied pool instead of creating one per call.
// The pool is left open for the caller to Close, and its own worker count
// and debug mode apply. Progress options are ignored for supplied pools,
// since trackers attach at pool construction.
func WithPool(p *pool.Pool) Option {
	return func(c *config) { c.pool = p }
}

// WithLogger sets the logger handed to pools created by the call.
// If not specified, logging is disabled.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}
