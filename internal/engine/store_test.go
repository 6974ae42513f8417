package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Instants in these tests are minutes from midnight: 600 = 10:00.
const (
	t1000 = 600
	t1030 = 630
	t1100 = 660
	t1130 = 690
)

func TestStoreCreateAcceptsAndQueries(t *testing.T) {
	s := NewStore(Options{})
	res, err := s.Create(1, t1000, t1100, 1, 42)
	require.NoError(t, err)
	require.False(t, res.Queued)
	require.Equal(t, StatusActive, res.Reservation.Status)
	require.Equal(t, uint64(42), res.Reservation.OwnerID)

	got := s.QueryOverlap(1, t1000, t1130)
	require.Len(t, got, 1)
	require.Equal(t, res.Reservation.ID, got[0].ID)

	// Other rooms are independent.
	require.Empty(t, s.QueryOverlap(2, t1000, t1130))
}

func TestStoreCreateInvalidRange(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1100, t1000, 1, 1)
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = s.Create(1, t1000, t1000, 1, 1)
	require.ErrorIs(t, err, ErrInvalidRange)
	require.Equal(t, 0, s.log.UndoDepth())
}

func TestStoreHigherPriorityEvictsIncumbent(t *testing.T) {
	s := NewStore(Options{})
	old, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)

	win, err := s.Create(1, t1030, t1130, 5, 2)
	require.NoError(t, err)
	require.False(t, win.Queued)
	require.Len(t, win.Evicted, 1)
	require.Equal(t, old.Reservation.ID, win.Evicted[0].ID)
	require.Equal(t, StatusQueued, win.Evicted[0].Status)

	// Only the winner remains committed.
	got := s.QueryOverlap(1, t1000, t1130)
	require.Len(t, got, 1)
	require.Equal(t, win.Reservation.ID, got[0].ID)

	// The loser waits with its original arrival sequence.
	wl := s.WaitlistFor(1)
	require.Len(t, wl, 1)
	require.Equal(t, old.Reservation.Seq, wl[0].Seq)
}

func TestStorePriorityTieQueuesChallenger(t *testing.T) {
	s := NewStore(Options{})
	old, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)

	res, err := s.Create(1, t1030, t1130, 1, 2)
	require.ErrorIs(t, err, ErrConflict)
	require.True(t, res.Queued)
	require.Equal(t, 1, res.Position)
	require.Equal(t, StatusQueued, res.Reservation.Status)

	got := s.QueryOverlap(1, t1000, t1130)
	require.Len(t, got, 1)
	require.Equal(t, old.Reservation.ID, got[0].ID)
}

func TestStoreTieFavorChallengerPolicy(t *testing.T) {
	s := NewStore(Options{Ties: TieFavorChallenger})
	old, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)

	win, err := s.Create(1, t1030, t1130, 1, 2)
	require.NoError(t, err)
	require.Len(t, win.Evicted, 1)
	require.Equal(t, old.Reservation.ID, win.Evicted[0].ID)
}

func TestStorePartialPriorityWinStillQueues(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1000, t1030, 1, 1)
	require.NoError(t, err)
	high, err := s.Create(1, t1030, t1100, 7, 1)
	require.NoError(t, err)

	// Beats the first conflict but not the second: queued.
	res, err := s.Create(1, t1000, t1100, 5, 2)
	require.ErrorIs(t, err, ErrConflict)
	require.True(t, res.Queued)
	require.Len(t, s.QueryOverlap(1, t1000, t1100), 2)
	_ = high
}

func TestStoreCancelPromotesQueuedReservation(t *testing.T) {
	s := NewStore(Options{})
	old, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)

	// Higher priority takes the slot, original goes to the waitlist.
	win, err := s.Create(1, t1030, t1130, 5, 2)
	require.NoError(t, err)

	// Cancelling the survivor lets the original back in.
	cres, err := s.Cancel(win.Reservation.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cres.Cancelled.Status)
	require.NotNil(t, cres.Promoted)
	require.Equal(t, old.Reservation.ID, cres.Promoted.ID)
	require.Equal(t, StatusActive, cres.Promoted.Status)

	got := s.QueryOverlap(1, t1000, t1130)
	require.Len(t, got, 1)
	require.Equal(t, old.Reservation.ID, got[0].ID)
	require.Empty(t, s.WaitlistFor(1))
}

func TestStoreCancelWithoutFittingCandidate(t *testing.T) {
	s := NewStore(Options{})
	keep, err := s.Create(1, t1000, t1100, 5, 1)
	require.NoError(t, err)
	other, err := s.Create(1, t1100, t1130, 5, 1)
	require.NoError(t, err)

	// Queued request overlaps both committed reservations.
	q, err := s.Create(1, t1030, t1130, 1, 2)
	require.ErrorIs(t, err, ErrConflict)

	// Freeing only the later slot is not enough; the entry stays queued.
	_, err = s.Cancel(other.Reservation.ID)
	require.NoError(t, err)
	require.Len(t, s.WaitlistFor(1), 1)
	require.Equal(t, q.Reservation.ID, s.WaitlistFor(1)[0].ID)
	_ = keep
}

func TestStoreCancelUnknown(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Cancel(99)
	require.ErrorIs(t, err, ErrNotFound)

	// Queued reservations are not cancellable, only withdrawable.
	_, err = s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)
	q, err := s.Create(1, t1000, t1100, 1, 2)
	require.ErrorIs(t, err, ErrConflict)
	_, err = s.Cancel(q.Reservation.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreWithdrawFromWaitlist(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)
	q, err := s.Create(1, t1000, t1100, 1, 2)
	require.ErrorIs(t, err, ErrConflict)

	res, err := s.WithdrawFromWaitlist(q.Reservation.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, res.Status)
	require.Empty(t, s.WaitlistFor(1))

	_, err = s.WithdrawFromWaitlist(q.Reservation.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUndoRestoresExactState(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)
	before := s.Snapshot()

	// The composite accept+evict mutation...
	win, err := s.Create(1, t1030, t1130, 5, 2)
	require.NoError(t, err)
	after := s.Snapshot()

	// ...undoes as one unit, byte for byte.
	_, err = s.Undo()
	require.NoError(t, err)
	undone := s.Snapshot()
	require.Equal(t, before.Committed, undone.Committed)
	require.Equal(t, before.Waitlist, undone.Waitlist)

	// And redo brings back the post-call state.
	_, err = s.Redo()
	require.NoError(t, err)
	redone := s.Snapshot()
	require.Equal(t, after.Committed, redone.Committed)
	require.Equal(t, after.Waitlist, redone.Waitlist)
	_ = win
}

func TestStoreUndoCancelRestoresPromotion(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)
	win, err := s.Create(1, t1030, t1130, 5, 2)
	require.NoError(t, err)

	before := s.Snapshot()
	cres, err := s.Cancel(win.Reservation.ID)
	require.NoError(t, err)
	require.NotNil(t, cres.Promoted)

	// One undo reverts the cancellation and the promotion together.
	_, err = s.Undo()
	require.NoError(t, err)
	undone := s.Snapshot()
	require.Equal(t, before.Committed, undone.Committed)
	require.Equal(t, before.Waitlist, undone.Waitlist)
}

func TestStoreEmptyUndoRedoLeaveStateUntouched(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.Undo()
	require.NoError(t, err)
	_, err = s.Undo()
	require.ErrorIs(t, err, ErrEmptyUndo)
	_, err = s.Redo()
	require.NoError(t, err)
	_, err = s.Redo()
	require.ErrorIs(t, err, ErrEmptyRedo)

	require.Equal(t, before.Committed, s.Snapshot().Committed)
}

func TestStoreMutationClearsRedo(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)

	_, err = s.Create(2, t1000, t1100, 1, 1)
	require.NoError(t, err)
	_, err = s.Redo()
	require.ErrorIs(t, err, ErrEmptyRedo)
}

func TestStoreWaitlistCapacityPrecheck(t *testing.T) {
	s := NewStore(Options{MaxWaitlist: 1})
	_, err := s.Create(1, t1000, t1030, 1, 1)
	require.NoError(t, err)
	_, err = s.Create(1, t1030, t1100, 1, 1)
	require.NoError(t, err)

	// First queue fills the waitlist.
	_, err = s.Create(1, t1000, t1030, 1, 2)
	require.ErrorIs(t, err, ErrConflict)

	// Second queue has no room left.
	before := s.Snapshot()
	_, err = s.Create(1, t1030, t1100, 1, 3)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, before.Committed, s.Snapshot().Committed)
	require.Equal(t, before.Waitlist, s.Snapshot().Waitlist)

	// An eviction pair that cannot fit on the waitlist is refused too.
	_, err = s.Create(1, t1000, t1100, 9, 4)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Len(t, s.QueryOverlap(1, t1000, t1100), 2)
}

func TestStoreSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore(Options{MaxUndoDepth: 50})
	_, err := s.Create(1, t1000, t1100, 2, 1)
	require.NoError(t, err)
	_, err = s.Create(2, t1030, t1130, 3, 2)
	require.NoError(t, err)
	_, err = s.Create(1, t1000, t1100, 1, 3)
	require.ErrorIs(t, err, ErrConflict)

	snap := s.Snapshot()
	require.Equal(t, 50, snap.LogDepth)

	restored := NewStore(Options{MaxUndoDepth: 50})
	require.NoError(t, restored.Restore(snap))
	require.Equal(t, snap.Committed, restored.Snapshot().Committed)
	require.Equal(t, snap.Waitlist, restored.Snapshot().Waitlist)

	// The log does not survive a restore.
	_, err = restored.Undo()
	require.ErrorIs(t, err, ErrEmptyUndo)

	// Counters continue where the snapshot left off.
	res, err := restored.Create(3, t1000, t1100, 1, 9)
	require.NoError(t, err)
	require.Greater(t, res.Reservation.ID, snap.NextID)
}

func TestStoreStatsView(t *testing.T) {
	s := NewStore(Options{})
	_, err := s.Create(1, t1000, t1100, 1, 1)
	require.NoError(t, err)
	_, err = s.Create(1, t1000, t1100, 1, 2)
	require.ErrorIs(t, err, ErrConflict)
	_, err = s.Create(2, t1000, t1100, 1, 3)
	require.NoError(t, err)

	st := s.StatsView()
	require.Equal(t, 2, st.TotalActive)
	require.Equal(t, 1, st.TotalQueued)
	require.Len(t, st.Rooms, 2)
	require.Equal(t, RoomStats{RoomID: 1, Active: 1, Waitlisted: 1}, st.Rooms[0])
	require.Equal(t, RoomStats{RoomID: 2, Active: 1, Waitlisted: 0}, st.Rooms[1])
	require.Equal(t, 3, st.UndoDepth)
}
