package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransactionLogEmptyStacks(t *testing.T) {
	l := NewTransactionLog(0)
	noop := func(Record) error { return nil }

	_, err := l.Undo(noop)
	require.ErrorIs(t, err, ErrEmptyUndo)
	_, err = l.Redo(noop)
	require.ErrorIs(t, err, ErrEmptyRedo)
}

func TestTransactionLogUndoAppliesInversesInReverse(t *testing.T) {
	l := NewTransactionLog(0)
	l.Record([]Record{
		{Kind: OpDelete, Res: Reservation{ID: 1}},
		{Kind: OpEnqueue, Res: Reservation{ID: 1}},
		{Kind: OpInsert, Res: Reservation{ID: 2}},
	})

	var applied []Record
	_, err := l.Undo(func(r Record) error {
		applied = append(applied, r)
		return nil
	})
	require.NoError(t, err)

	// Last record first, each one inverted.
	require.Len(t, applied, 3)
	require.Equal(t, OpDelete, applied[0].Kind)
	require.Equal(t, uint64(2), applied[0].Res.ID)
	require.Equal(t, OpDequeue, applied[1].Kind)
	require.Equal(t, OpInsert, applied[2].Kind)
	require.Equal(t, uint64(1), applied[2].Res.ID)

	require.Equal(t, 0, l.UndoDepth())
	require.Equal(t, 1, l.RedoDepth())
}

func TestTransactionLogRedoReplaysForward(t *testing.T) {
	l := NewTransactionLog(0)
	g := l.Record([]Record{
		{Kind: OpInsert, Res: Reservation{ID: 7}},
		{Kind: OpEnqueue, Res: Reservation{ID: 8}},
	})

	noop := func(Record) error { return nil }
	_, err := l.Undo(noop)
	require.NoError(t, err)

	var applied []Record
	redone, err := l.Redo(func(r Record) error {
		applied = append(applied, r)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, g.ID, redone.ID)
	require.Equal(t, []OpKind{OpInsert, OpEnqueue}, []OpKind{applied[0].Kind, applied[1].Kind})
	require.Equal(t, 1, l.UndoDepth())
	require.Equal(t, 0, l.RedoDepth())
}

func TestTransactionLogNewMutationClearsRedo(t *testing.T) {
	l := NewTransactionLog(0)
	noop := func(Record) error { return nil }

	l.Record([]Record{{Kind: OpInsert, Res: Reservation{ID: 1}}})
	_, err := l.Undo(noop)
	require.NoError(t, err)
	require.Equal(t, 1, l.RedoDepth())

	l.Record([]Record{{Kind: OpInsert, Res: Reservation{ID: 2}}})
	require.Equal(t, 0, l.RedoDepth())
	_, err = l.Redo(noop)
	require.ErrorIs(t, err, ErrEmptyRedo)
}

func TestTransactionLogDepthEvictsOldestFirst(t *testing.T) {
	l := NewTransactionLog(2)
	noop := func(Record) error { return nil }

	first := l.Record([]Record{{Kind: OpInsert, Res: Reservation{ID: 1}}})
	second := l.Record([]Record{{Kind: OpInsert, Res: Reservation{ID: 2}}})
	third := l.Record([]Record{{Kind: OpInsert, Res: Reservation{ID: 3}}})
	require.Equal(t, 2, l.UndoDepth())

	g, err := l.Undo(noop)
	require.NoError(t, err)
	require.Equal(t, third.ID, g.ID)
	g, err = l.Undo(noop)
	require.NoError(t, err)
	require.Equal(t, second.ID, g.ID)

	// The first group was evicted when the third was recorded.
	_, err = l.Undo(noop)
	require.ErrorIs(t, err, ErrEmptyUndo)
	_ = first
}
