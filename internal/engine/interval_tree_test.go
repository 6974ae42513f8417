package engine

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntervalIndexInsertValidatesRange(t *testing.T) {
	idx := NewIntervalIndex()
	require.ErrorIs(t, idx.Insert(10, 10, 1), ErrInvalidRange)
	require.ErrorIs(t, idx.Insert(20, 10, 1), ErrInvalidRange)
	require.Equal(t, 0, idx.Len())
}

func TestIntervalIndexEmptyQueries(t *testing.T) {
	idx := NewIntervalIndex()
	require.Empty(t, idx.Overlap(0, 100))
	require.Empty(t, idx.At(50))
	require.NoError(t, idx.Validate())
}

func TestIntervalIndexDeleteUnknown(t *testing.T) {
	idx := NewIntervalIndex()
	require.ErrorIs(t, idx.Delete(42), ErrNotFound)
	require.NoError(t, idx.Insert(0, 10, 1))
	require.ErrorIs(t, idx.Delete(42), ErrNotFound)
}

func TestIntervalIndexOverlapSemantics(t *testing.T) {
	idx := NewIntervalIndex()
	require.NoError(t, idx.Insert(10, 20, 1))
	require.NoError(t, idx.Insert(20, 30, 2))
	require.NoError(t, idx.Insert(5, 40, 3))

	// Half-open: [10,20) and [20,30) do not overlap each other.
	require.Equal(t, []uint64{3, 1}, idx.Overlap(0, 20))
	require.Equal(t, []uint64{3, 2}, idx.Overlap(20, 25))
	require.Equal(t, []uint64{3, 1, 2}, idx.Overlap(0, 100))
	require.Empty(t, idx.Overlap(40, 50))

	// Point queries follow half-open containment.
	require.Equal(t, []uint64{3, 1}, idx.At(10))
	require.Equal(t, []uint64{3, 2}, idx.At(20))
	require.Equal(t, []uint64{3}, idx.At(35))
	require.Empty(t, idx.At(40))
}

func TestIntervalIndexEqualStartChains(t *testing.T) {
	idx := NewIntervalIndex()
	require.NoError(t, idx.Insert(10, 20, 1))
	require.NoError(t, idx.Insert(10, 50, 2))
	require.NoError(t, idx.Insert(10, 15, 3))
	require.Equal(t, 3, idx.Len())
	require.NoError(t, idx.Validate())

	// All chain members are examined, not just one.
	got := idx.Overlap(18, 60)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Equal(t, []uint64{1, 2}, got)

	// Removing one chain member keeps the node and the others.
	require.NoError(t, idx.Delete(2))
	require.NoError(t, idx.Validate())
	require.Empty(t, idx.Overlap(25, 60))
	require.Equal(t, []uint64{1, 3}, idx.Overlap(10, 16))

	require.NoError(t, idx.Delete(1))
	require.NoError(t, idx.Delete(3))
	require.Equal(t, 0, idx.Len())
	require.NoError(t, idx.Validate())
}

func TestIntervalIndexStructuralDeleteRebalances(t *testing.T) {
	idx := NewIntervalIndex()
	// Ascending inserts force rotations on every other insert.
	for i := uint64(1); i <= 64; i++ {
		start := int64(i * 10)
		require.NoError(t, idx.Insert(start, start+5, i))
		require.NoError(t, idx.Validate())
	}
	// Delete in an order that exercises leaf, one-child and
	// two-children cases.
	for _, id := range []uint64{32, 1, 64, 16, 48, 2, 63} {
		require.NoError(t, idx.Delete(id))
		require.NoError(t, idx.Validate())
	}
	require.Equal(t, 57, idx.Len())
}

// brute mirrors the index with a flat slice for cross-checking.
type bruteInterval struct {
	id         uint64
	start, end int64
}

func bruteOverlap(items []bruteInterval, qs, qe int64) []uint64 {
	var out []uint64
	for _, it := range items {
		if it.start < qe && it.end > qs {
			out = append(out, it.id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestIntervalIndexRandomizedAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	idx := NewIntervalIndex()
	var mirror []bruteInterval
	nextID := uint64(0)

	for step := 0; step < 2000; step++ {
		switch {
		case len(mirror) == 0 || rng.Intn(3) != 0:
			nextID++
			start := int64(rng.Intn(500))
			end := start + 1 + int64(rng.Intn(60))
			require.NoError(t, idx.Insert(start, end, nextID))
			mirror = append(mirror, bruteInterval{id: nextID, start: start, end: end})
		default:
			i := rng.Intn(len(mirror))
			require.NoError(t, idx.Delete(mirror[i].id))
			mirror = append(mirror[:i], mirror[i+1:]...)
		}

		require.NoError(t, idx.Validate(), "step %d", step)
		require.Equal(t, len(mirror), idx.Len())

		qs := int64(rng.Intn(550))
		qe := qs + int64(rng.Intn(80))
		got := idx.Overlap(qs, qe)
		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		want := bruteOverlap(mirror, qs, qe)
		require.Equal(t, want, got, "step %d query [%d,%d)", step, qs, qe)
	}
}

func TestIntervalIndexOverlapOrderedByStart(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	idx := NewIntervalIndex()
	starts := make(map[uint64]int64)
	for id := uint64(1); id <= 200; id++ {
		start := int64(rng.Intn(1000))
		require.NoError(t, idx.Insert(start, start+int64(1+rng.Intn(50)), id))
		starts[id] = start
	}
	got := idx.Overlap(0, 2000)
	require.Len(t, got, 200)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, starts[got[i-1]], starts[got[i]])
	}
}
