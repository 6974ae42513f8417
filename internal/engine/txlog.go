package engine

// OpKind identifies one reversible structural operation.
type OpKind uint8

const (
	// OpInsert committed a reservation into a room's interval index.
	OpInsert OpKind = iota
	// OpDelete removed a reservation from a room's interval index.
	OpDelete
	// OpEnqueue placed a reservation on a room's waitlist.
	OpEnqueue
	// OpDequeue removed a reservation from a room's waitlist.
	OpDequeue
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpEnqueue:
		return "enqueue"
	case OpDequeue:
		return "dequeue"
	}
	return "unknown"
}

// Record is one already-applied structural operation together with the
// state needed to invert it: Res carries the reservation's full fields
// (range, priority, owner, arrival sequence), so a deleted reservation
// can be re-inserted identically and a dequeued entry re-queued at its
// original place in line.
type Record struct {
	Kind OpKind
	Res  Reservation
}

// Inverse returns the record that exactly reverts this one.
func (r Record) Inverse() Record {
	switch r.Kind {
	case OpInsert:
		return Record{Kind: OpDelete, Res: r.Res}
	case OpDelete:
		return Record{Kind: OpInsert, Res: r.Res}
	case OpEnqueue:
		return Record{Kind: OpDequeue, Res: r.Res}
	default:
		return Record{Kind: OpEnqueue, Res: r.Res}
	}
}

// Group is a composite set of records that undo and redo as one atomic
// unit: an acceptance that evicted two reservations is one group of
// five records, and a single Undo reverts all five.
type Group struct {
	ID      uint64
	Records []Record
}

// TransactionLog keeps the undo and redo stacks of applied groups.
// It never touches the data structures itself: Undo and Redo hand each
// derived record to the store's apply callback, which performs the
// structural change without logging it again.
type TransactionLog struct {
	undo     []Group
	redo     []Group
	maxDepth int // 0 = unlimited history
	nextID   uint64
}

// NewTransactionLog returns an empty log. A positive maxDepth bounds
// memory by evicting the oldest undo group once the depth is exceeded;
// zero keeps unlimited history.
func NewTransactionLog(maxDepth int) *TransactionLog {
	return &TransactionLog{maxDepth: maxDepth}
}

// UndoDepth reports how many groups can currently be undone.
func (l *TransactionLog) UndoDepth() int { return len(l.undo) }

// RedoDepth reports how many groups can currently be redone.
func (l *TransactionLog) RedoDepth() int { return len(l.redo) }

// MaxDepth reports the configured history bound (0 = unlimited).
func (l *TransactionLog) MaxDepth() int { return l.maxDepth }

// Record pushes a group of already-applied records onto the undo stack
// and clears the redo stack: once a fresh mutation lands, the old
// redo branch is unreachable. Oldest groups are evicted first when
// the configured depth is exceeded.
func (l *TransactionLog) Record(records []Record) Group {
	l.nextID++
	g := Group{ID: l.nextID, Records: records}
	l.undo = append(l.undo, g)
	if l.maxDepth > 0 && len(l.undo) > l.maxDepth {
		l.undo = append(l.undo[:0], l.undo[len(l.undo)-l.maxDepth:]...)
	}
	l.redo = l.redo[:0]
	return g
}

// Undo pops the most recent group and applies each record's inverse in
// reverse record order through apply. The original group moves to the
// redo stack. Returns ErrEmptyUndo when there is nothing to revert.
func (l *TransactionLog) Undo(apply func(Record) error) (Group, error) {
	if len(l.undo) == 0 {
		return Group{}, ErrEmptyUndo
	}
	g := l.undo[len(l.undo)-1]
	for i := len(g.Records) - 1; i >= 0; i-- {
		if err := apply(g.Records[i].Inverse()); err != nil {
			return Group{}, err
		}
	}
	l.undo = l.undo[:len(l.undo)-1]
	l.redo = append(l.redo, g)
	return g, nil
}

// Redo re-applies the most recently undone group, forward record
// order, and moves it back to the undo stack. Returns ErrEmptyRedo
// when there is nothing to replay.
func (l *TransactionLog) Redo(apply func(Record) error) (Group, error) {
	if len(l.redo) == 0 {
		return Group{}, ErrEmptyRedo
	}
	g := l.redo[len(l.redo)-1]
	for _, rec := range g.Records {
		if err := apply(rec); err != nil {
			return Group{}, err
		}
	}
	l.redo = l.redo[:len(l.redo)-1]
	l.undo = append(l.undo, g)
	return g, nil
}
