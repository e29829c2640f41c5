// Package parfor parallelizes a for-loop over a pool of workers, returning
// results in input order.
//
// The package is a thin orchestration layer over pool: it decides between
// serial and parallel execution, batches items into chunks, and reassembles
// out-of-order completions into the original order. Inputs below the serial
// threshold run entirely in the calling goroutine.
//
// # Basic Usage
//
//	results, err := parfor.Map(ctx, items, func(ctx context.Context, i int) (int, error) {
//	    return 3 * i * i, nil
//	}, parfor.WithWorkers(4))
//
// With a progress bar and a description:
//
//	results, err := parfor.Map(ctx, files, convert,
//	    parfor.WithBar(true),
//	    parfor.WithDescription("converting"),
//	)
//
// Lazy sources work through MapSeq; since a sequence has no intrinsic
// length, the task count must be hinted:
//
//	results, err := parfor.MapSeq(ctx, lines(r), parse, parfor.WithLength(n))
//
// # Error Modes
//
// Map fails fast: the first confirmed task error aborts the whole call and
// no result slice is returned. MapOutcomes captures errors instead: its
// result always has one entry per input item, mixing values and captured
// errors by index. Worker crashes (a panic escaping a callable) are fatal in
// both modes.
//
// # Reusing a Pool
//
// Each call creates and releases its own pool by default. Callers doing many
// small maps can amortize worker startup with WithPool:
//
//	p := pool.New(pool.WithWorkers(8))
//	defer p.Close()
//	for _, batch := range batches {
//	    out, err := parfor.Map(ctx, batch, fn, parfor.WithPool(p))
//	    ...
//	}
package parfor
