package engine

import "sort"

// Snapshot is the serializable view of the engine consumed by the
// persistence layer: every committed reservation, every waitlist entry
// (arrival sequence included, so queue order survives a restart), and
// the id/sequence counters. The undo/redo stacks are deliberately not
// part of it; only the configured log depth travels along so a
// restored store is tuned the same way.
type Snapshot struct {
	Committed []Reservation `json:"committed"`
	Waitlist  []Reservation `json:"waitlist"`
	NextID    uint64        `json:"next_id"`
	NextSeq   uint64        `json:"next_seq"`
	LogDepth  int           `json:"log_depth"`
}

// Snapshot captures the current state. Both slices are sorted by id so
// the output is deterministic.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Committed: make([]Reservation, 0, len(s.active)),
		Waitlist:  make([]Reservation, 0, len(s.queued)),
		NextID:    s.nextID,
		NextSeq:   s.nextSeq,
		LogDepth:  s.log.MaxDepth(),
	}
	for _, r := range s.active {
		snap.Committed = append(snap.Committed, r)
	}
	for _, r := range s.queued {
		snap.Waitlist = append(snap.Waitlist, r)
	}
	sort.Slice(snap.Committed, func(i, j int) bool { return snap.Committed[i].ID < snap.Committed[j].ID })
	sort.Slice(snap.Waitlist, func(i, j int) bool { return snap.Waitlist[i].ID < snap.Waitlist[j].ID })
	return snap
}

// Restore replaces the store's state with the snapshot. The undo and
// redo history starts empty: the log is not durable by design, so
// nothing recorded before the snapshot can be reverted after it.
func (s *Store) Restore(snap Snapshot) error {
	rooms := make(map[uint64]*roomState)
	active := make(map[uint64]Reservation, len(snap.Committed))
	queued := make(map[uint64]Reservation, len(snap.Waitlist))

	roomFor := func(id uint64) *roomState {
		rs, ok := rooms[id]
		if !ok {
			rs = &roomState{
				index:    NewIntervalIndex(),
				waitlist: NewPriorityWaitlist(s.opts.MaxWaitlist),
			}
			rooms[id] = rs
		}
		return rs
	}

	for _, r := range snap.Committed {
		rs := roomFor(r.RoomID)
		if err := rs.index.Insert(r.Start, r.End, r.ID); err != nil {
			return err
		}
		r.Status = StatusActive
		active[r.ID] = r
	}
	for _, r := range snap.Waitlist {
		rs := roomFor(r.RoomID)
		if err := rs.waitlist.Enqueue(r); err != nil {
			return err
		}
		r.Status = StatusQueued
		queued[r.ID] = r
	}

	s.rooms = rooms
	s.active = active
	s.queued = queued
	s.nextID = snap.NextID
	s.nextSeq = snap.NextSeq
	s.log = NewTransactionLog(s.opts.MaxUndoDepth)
	return nil
}
