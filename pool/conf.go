package pool

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/parfor-go/parfor/progress"
)

const (
	// One worker per three logical CPUs by default, leaving headroom for the
	// caller and for whatever else the machine is doing.
	defaultWorkerDivisor = 3
)

// DefaultQueueFactor bounds the input and output queues at
// DefaultQueueFactor*workers chunks unless WithQueueFactor overrides it.
// The bound is the pool's backpressure mechanism: submissions block once the
// backlog reaches it.
const DefaultQueueFactor = 3

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	workers     int
	queueFactor int
	debug       bool
	codec       Codec
	tracker     *progress.Tracker
	log         *zap.Logger
}

func defaultConfig() *config {
	return &config{
		workers:     DefaultWorkers(),
		queueFactor: DefaultQueueFactor,
		log:         zap.NewNop(),
	}
}

// DefaultWorkers returns the default pool size: a third of the available
// processing units, minimum one.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0) / defaultWorkerDivisor
	if n < 1 {
		n = 1
	}
	return n
}

// WithWorkers sets the number of workers.
// If not specified, defaults to DefaultWorkers().
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithWorkerFraction sizes the pool as a fraction of the available processing
// units, minimum one worker.
func WithWorkerFraction(f float64) Option {
	return func(c *config) {
		if f <= 0 {
			return
		}
		n := int(f * float64(runtime.GOMAXPROCS(0)))
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// WithQueueFactor bounds the input and output queues at factor*workers
// chunks. A larger factor smooths bursty submission at the cost of memory
// held by queued chunks.
func WithQueueFactor(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueFactor = n
		}
	}
}

// WithDebug switches the pool to error-capture mode: a task error becomes
// that task's outcome instead of triggering re-execution and fail-fast abort.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.debug = debug
	}
}

// WithCodec routes every submission through codec, so tasks that cannot
// cross the worker boundary are rejected when submitted rather than failing
// later.
func WithCodec(codec Codec) Option {
	return func(c *config) {
		c.codec = codec
	}
}

// WithProgress attaches a tracker that workers feed after every completed
// task. Delivery is best-effort and never blocks a worker.
func WithProgress(t *progress.Tracker) Option {
	return func(c *config) {
		c.tracker = t
	}
}

// WithLogger sets the logger for pool lifecycle events.
// If not specified, logging is disabled.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}
