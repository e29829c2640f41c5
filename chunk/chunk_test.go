package chunk

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("even split", func(t *testing.T) {
		got := Split([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 2)
		want := [][]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {8, 9}}
		assert.Equal(t, want, got)
	})

	t.Run("remainder in last chunk", func(t *testing.T) {
		got := Split([]int{1, 2, 3, 4, 5}, 3)
		want := [][]int{{1, 2, 3}, {4, 5}}
		assert.Equal(t, want, got)
	})

	t.Run("size larger than input", func(t *testing.T) {
		got := Split([]int{1, 2}, 10)
		assert.Equal(t, [][]int{{1, 2}}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, Split([]int{}, 3))
	})

	t.Run("non-positive size treated as one", func(t *testing.T) {
		got := Split([]int{1, 2, 3}, 0)
		assert.Equal(t, [][]int{{1}, {2}, {3}}, got)
	})
}

func TestSplitRoundTrip(t *testing.T) {
	items := make([]int, 137)
	for i := range items {
		items[i] = i * i
	}

	for size := 1; size <= len(items)+1; size++ {
		var flat []int
		for _, c := range Split(items, size) {
			require.LessOrEqual(t, len(c), size)
			flat = append(flat, c...)
		}
		require.Equal(t, items, flat, "size %d", size)
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, 2, Size(10, 2))
	assert.Equal(t, 3, Size(10, 3))
	assert.Equal(t, 5, Size(9, 4))

	// Total at or below target collapses to one chunk.
	assert.Equal(t, 4, Size(3, 4))
	assert.Equal(t, 4, Size(4, 4))

	// Degenerate inputs never return a size below one.
	assert.GreaterOrEqual(t, Size(0, 0), 1)
	assert.GreaterOrEqual(t, Size(100, -5), 1)
}

func TestForWorkers(t *testing.T) {
	size := ForWorkers(1000, 4, 4)
	chunks := (1000 + size - 1) / size
	assert.GreaterOrEqual(t, chunks, 4, "at least one chunk per worker")
	assert.LessOrEqual(t, chunks, 20)

	// Tiny inputs still produce a valid size.
	assert.GreaterOrEqual(t, ForWorkers(1, 8, 4), 1)
	assert.GreaterOrEqual(t, ForWorkers(0, 0, 0), 1)
}

func TestSplitSeq(t *testing.T) {
	src := func(yield func(int) bool) {
		for i := range 10 {
			if !yield(i) {
				return
			}
		}
	}

	t.Run("round trip", func(t *testing.T) {
		var got [][]int
		for c := range SplitSeq(iter.Seq[int](src), 2) {
			got = append(got, c)
		}
		want := [][]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {8, 9}}
		assert.Equal(t, want, got)
	})

	t.Run("short final chunk", func(t *testing.T) {
		var got [][]int
		for c := range SplitSeq(iter.Seq[int](src), 4) {
			got = append(got, c)
		}
		want := [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}, {8, 9}}
		assert.Equal(t, want, got)
	})

	t.Run("pulls lazily", func(t *testing.T) {
		pulled := 0
		counting := func(yield func(int) bool) {
			for i := range 100 {
				pulled++
				if !yield(i) {
					return
				}
			}
		}

		next, stop := iter.Pull(SplitSeq(iter.Seq[int](counting), 5))
		defer stop()

		first, ok := next()
		require.True(t, ok)
		require.Equal(t, []int{0, 1, 2, 3, 4}, first)
		assert.Equal(t, 5, pulled, "only the first chunk should have been pulled")
	})
}
