// Package chunk splits ordered sequences into bounded-size batches.
//
// The package is a pure utility: it has no dependency on the pool and can be
// used on its own, for example to hand pre-batched work to a different
// executor. Concatenating the chunks in order always reproduces the input
// exactly.
package chunk

import (
	"iter"
	"math"
)

// Size returns an evened chunk size for splitting total items into chunks of
// roughly target items each. Rather than producing uniform chunks plus a tiny
// remainder, the size is adjusted so all chunks end up close in length.
func Size(total, target int) int {
	if target < 1 {
		target = 1
	}
	if total <= target {
		return target
	}

	parts := math.Round(float64(total) / float64(target))
	size := int(math.Round(float64(total) / parts))
	if size < 1 {
		size = 1
	}
	return size
}

// ForWorkers returns the default chunk size for distributing total items over
// the given number of workers, aiming for perWorker chunks per worker. The
// ratio is a heuristic balancing scheduling granularity against per-chunk
// queue crossings, not a contract.
func ForWorkers(total, workers, perWorker int) int {
	if workers < 1 {
		workers = 1
	}
	if perWorker < 1 {
		perWorker = 1
	}

	chunks := workers * perWorker
	target := (total + chunks - 1) / chunks
	if target < 1 {
		target = 1
	}
	return Size(total, target)
}

// Split divides items into ordered chunks of at most size elements. The
// returned sub-slices alias the input; they are never copied.
func Split[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	if len(items) == 0 {
		return nil
	}

	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

// SplitSeq chunks a lazy source incrementally: items are pulled from src only
// while the current chunk is being filled, so the source is never materialized
// ahead of consumption. The final chunk may be shorter than size.
func SplitSeq[T any](src iter.Seq[T], size int) iter.Seq[[]T] {
	if size < 1 {
		size = 1
	}

	return func(yield func([]T) bool) {
		buf := make([]T, 0, size)
		for v := range src {
			buf = append(buf, v)
			if len(buf) == size {
				if !yield(buf) {
					return
				}
				buf = make([]T, 0, size)
			}
		}
		if len(buf) > 0 {
			yield(buf)
		}
	}
}
