package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitlistPopOrder(t *testing.T) {
	wl := NewPriorityWaitlist(0)
	// Priorities [3,1,3,2] arriving in sequence order 0..3.
	prios := []int{3, 1, 3, 2}
	for i, p := range prios {
		require.NoError(t, wl.Enqueue(Reservation{ID: uint64(i), Priority: p, Seq: uint64(i)}))
	}
	require.Equal(t, 4, wl.Len())

	// Highest priority first, earlier arrival breaking the tie.
	var popped []uint64
	for wl.Len() > 0 {
		r, err := wl.PopBest()
		require.NoError(t, err)
		popped = append(popped, r.ID)
	}
	require.Equal(t, []uint64{0, 2, 3, 1}, popped)

	_, err := wl.PopBest()
	require.ErrorIs(t, err, ErrEmptyQueue)
}

func TestWaitlistPeekDoesNotRemove(t *testing.T) {
	wl := NewPriorityWaitlist(0)
	_, ok := wl.PeekBest()
	require.False(t, ok)

	require.NoError(t, wl.Enqueue(Reservation{ID: 1, Priority: 5, Seq: 1}))
	require.NoError(t, wl.Enqueue(Reservation{ID: 2, Priority: 9, Seq: 2}))

	best, ok := wl.PeekBest()
	require.True(t, ok)
	require.Equal(t, uint64(2), best.ID)
	require.Equal(t, 2, wl.Len())
}

func TestWaitlistRemoveByID(t *testing.T) {
	wl := NewPriorityWaitlist(0)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, wl.Enqueue(Reservation{ID: i, Priority: int(i), Seq: i}))
	}
	r, err := wl.RemoveByID(3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), r.ID)
	require.Equal(t, 4, wl.Len())

	_, err = wl.RemoveByID(3)
	require.ErrorIs(t, err, ErrNotFound)

	// Heap order intact after the middle removal.
	var popped []uint64
	for wl.Len() > 0 {
		r, err := wl.PopBest()
		require.NoError(t, err)
		popped = append(popped, r.ID)
	}
	require.Equal(t, []uint64{5, 4, 2, 1}, popped)
}

func TestWaitlistCapacity(t *testing.T) {
	wl := NewPriorityWaitlist(2)
	require.NoError(t, wl.Enqueue(Reservation{ID: 1, Seq: 1}))
	require.NoError(t, wl.Enqueue(Reservation{ID: 2, Seq: 2}))
	require.ErrorIs(t, wl.Enqueue(Reservation{ID: 3, Seq: 3}), ErrCapacityExceeded)
	require.Equal(t, 2, wl.Len())
}

func TestWaitlistEntriesSortedCopy(t *testing.T) {
	wl := NewPriorityWaitlist(0)
	require.NoError(t, wl.Enqueue(Reservation{ID: 1, Priority: 1, Seq: 1}))
	require.NoError(t, wl.Enqueue(Reservation{ID: 2, Priority: 7, Seq: 2}))
	require.NoError(t, wl.Enqueue(Reservation{ID: 3, Priority: 7, Seq: 3}))

	entries := wl.Entries()
	require.Equal(t, []uint64{2, 3, 1}, []uint64{entries[0].ID, entries[1].ID, entries[2].ID})
	// The view marks everything queued and leaves the heap untouched.
	for _, e := range entries {
		require.Equal(t, StatusQueued, e.Status)
	}
	require.Equal(t, 3, wl.Len())
}
