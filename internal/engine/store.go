package engine

import "sort"

// Options tunes the engine. The zero value means unlimited undo
// history, unbounded waitlists and incumbent-favoring ties.
type Options struct {
	// MaxUndoDepth bounds the undo history; the oldest group is
	// evicted once exceeded. 0 keeps unlimited history.
	MaxUndoDepth int
	// MaxWaitlist bounds each room's waitlist. 0 means unbounded.
	MaxWaitlist int
	// Ties selects who wins a priority tie on create.
	Ties TiePolicy
}

// roomState pairs the two per-room structures. Both are owned
// exclusively by the store.
type roomState struct {
	index    *IntervalIndex
	waitlist *PriorityWaitlist
}

// Store is the engine's public face. It owns every per-room interval
// index and waitlist, drives the conflict resolver, and records one
// composite transaction group per externally visible mutation so that
// Undo and Redo revert or replay each mutation atomically.
//
// The store performs no locking: every method runs to completion and
// assumes exclusive access for the duration of the call.
type Store struct {
	opts     Options
	resolver ConflictResolver
	log      *TransactionLog
	rooms    map[uint64]*roomState
	active   map[uint64]Reservation // committed, by id
	queued   map[uint64]Reservation // waitlisted, by id
	nextID   uint64
	nextSeq  uint64
}

// NewStore returns an empty store with the given options.
func NewStore(opts Options) *Store {
	return &Store{
		opts:     opts,
		resolver: ConflictResolver{Ties: opts.Ties},
		log:      NewTransactionLog(opts.MaxUndoDepth),
		rooms:    make(map[uint64]*roomState),
		active:   make(map[uint64]Reservation),
		queued:   make(map[uint64]Reservation),
	}
}

// room returns the roomState for the id, creating it lazily.
func (s *Store) room(roomID uint64) *roomState {
	rs, ok := s.rooms[roomID]
	if !ok {
		rs = &roomState{
			index:    NewIntervalIndex(),
			waitlist: NewPriorityWaitlist(s.opts.MaxWaitlist),
		}
		s.rooms[roomID] = rs
	}
	return rs
}

// CreateResult reports what Create did. Exactly one of the two shapes
// occurs: the reservation was committed (Evicted lists any
// reservations bumped to the waitlist), or it was queued (Queued true,
// Position its 1-based place in pop order) and Create also returned
// ErrConflict.
type CreateResult struct {
	Reservation Reservation   `json:"reservation"`
	Evicted     []Reservation `json:"evicted,omitempty"`
	Queued      bool          `json:"queued"`
	Position    int           `json:"position,omitempty"`
}

// Create resolves and applies a new reservation request. On a win over
// lower-priority conflicts, the losers move to the waitlist keeping
// their original arrival sequence, and the whole exchange is one undo
// group. When the request loses, it is queued and ErrConflict is
// returned alongside the result. Nothing is mutated when an error
// other than ErrConflict is returned.
func (s *Store) Create(roomID uint64, start, end int64, priority int, ownerID uint64) (CreateResult, error) {
	if start >= end {
		return CreateResult{}, ErrInvalidRange
	}
	rs := s.room(roomID)
	req := Reservation{
		ID:       s.nextID + 1,
		RoomID:   roomID,
		OwnerID:  ownerID,
		Start:    start,
		End:      end,
		Priority: priority,
		Seq:      s.nextSeq + 1,
		Status:   StatusActive,
	}

	res := s.resolver.ResolveCreate(rs.index, func(id uint64) Reservation { return s.active[id] }, req)

	// Pre-check waitlist capacity so a failure leaves no partial state.
	if s.opts.MaxWaitlist > 0 {
		incoming := len(res.Evict)
		if res.Decision == DecisionQueue {
			incoming = 1
		}
		if rs.waitlist.Len()+incoming > s.opts.MaxWaitlist {
			return CreateResult{}, ErrCapacityExceeded
		}
	}

	s.nextID++
	s.nextSeq++

	if res.Decision == DecisionQueue {
		req.Status = StatusQueued
		if err := rs.waitlist.Enqueue(req); err != nil {
			return CreateResult{}, err
		}
		s.queued[req.ID] = req
		s.log.Record([]Record{{Kind: OpEnqueue, Res: req}})
		return CreateResult{
			Reservation: req,
			Queued:      true,
			Position:    s.position(rs, req.ID),
		}, ErrConflict
	}

	records := make([]Record, 0, 2*len(res.Evict)+1)
	for _, loser := range res.Evict {
		if err := rs.index.Delete(loser.ID); err != nil {
			panic("engine: evicting a reservation the index just reported: " + err.Error())
		}
		delete(s.active, loser.ID)
		records = append(records, Record{Kind: OpDelete, Res: loser})
		loser.Status = StatusQueued
		if err := rs.waitlist.Enqueue(loser); err != nil {
			panic("engine: waitlist rejected pre-checked eviction: " + err.Error())
		}
		s.queued[loser.ID] = loser
		records = append(records, Record{Kind: OpEnqueue, Res: loser})
	}
	if err := rs.index.Insert(req.Start, req.End, req.ID); err != nil {
		// Range was validated above; only a bug lands here.
		panic("engine: insert of validated range failed: " + err.Error())
	}
	s.active[req.ID] = req
	records = append(records, Record{Kind: OpInsert, Res: req})
	s.log.Record(records)

	evicted := make([]Reservation, len(res.Evict))
	for i, loser := range res.Evict {
		loser.Status = StatusQueued
		evicted[i] = loser
	}
	return CreateResult{Reservation: req, Evicted: evicted}, nil
}

// CancelResult reports a cancellation and, when the freed slot let a
// waitlisted request back in, the promoted reservation.
type CancelResult struct {
	Cancelled Reservation  `json:"cancelled"`
	Promoted  *Reservation `json:"promoted,omitempty"`
}

// Cancel removes a committed reservation and promotes the best-fitting
// waitlist entry, if any, into the freed slot. Removal and promotion
// form one composite group: a single Undo restores both sides.
func (s *Store) Cancel(id uint64) (CancelResult, error) {
	res, ok := s.active[id]
	if !ok {
		return CancelResult{}, ErrNotFound
	}
	rs := s.room(res.RoomID)
	if err := rs.index.Delete(id); err != nil {
		panic("engine: active reservation missing from its index: " + err.Error())
	}
	delete(s.active, id)
	records := []Record{{Kind: OpDelete, Res: res}}

	result := CancelResult{Cancelled: res}
	result.Cancelled.Status = StatusCancelled

	if cand, ok := s.resolver.ResolvePromotion(rs.index, rs.waitlist); ok {
		if _, err := rs.waitlist.RemoveByID(cand.ID); err != nil {
			panic("engine: promotion candidate missing from waitlist: " + err.Error())
		}
		delete(s.queued, cand.ID)
		records = append(records, Record{Kind: OpDequeue, Res: cand})
		cand.Status = StatusActive
		if err := rs.index.Insert(cand.Start, cand.End, cand.ID); err != nil {
			panic("engine: promotion insert failed: " + err.Error())
		}
		s.active[cand.ID] = cand
		records = append(records, Record{Kind: OpInsert, Res: cand})
		result.Promoted = &cand
	}

	s.log.Record(records)
	return result, nil
}

// WithdrawFromWaitlist removes a queued request that no longer wants
// the slot. The removal is logged like any other mutation, so it can
// be undone.
func (s *Store) WithdrawFromWaitlist(id uint64) (Reservation, error) {
	res, ok := s.queued[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	rs := s.room(res.RoomID)
	if _, err := rs.waitlist.RemoveByID(id); err != nil {
		panic("engine: queued reservation missing from waitlist: " + err.Error())
	}
	delete(s.queued, id)
	s.log.Record([]Record{{Kind: OpDequeue, Res: res}})
	res.Status = StatusCancelled
	return res, nil
}

// QueryOverlap returns every committed reservation in the room whose
// range intersects [start, end), ordered by start. An unknown room
// yields an empty result, never an error.
func (s *Store) QueryOverlap(roomID uint64, start, end int64) []Reservation {
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	ids := rs.index.Overlap(start, end)
	out := make([]Reservation, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.active[id])
	}
	return out
}

// Undo reverts the most recent mutation group atomically.
func (s *Store) Undo() (Group, error) {
	return s.log.Undo(s.apply)
}

// Redo replays the most recently undone group atomically.
func (s *Store) Redo() (Group, error) {
	return s.log.Redo(s.apply)
}

// apply performs one structural record without logging it. Undo hands
// it inverse records, Redo the originals.
func (s *Store) apply(rec Record) error {
	rs := s.room(rec.Res.RoomID)
	r := rec.Res
	switch rec.Kind {
	case OpInsert:
		if err := rs.index.Insert(r.Start, r.End, r.ID); err != nil {
			return err
		}
		r.Status = StatusActive
		s.active[r.ID] = r
	case OpDelete:
		if err := rs.index.Delete(r.ID); err != nil {
			return err
		}
		delete(s.active, r.ID)
	case OpEnqueue:
		r.Status = StatusQueued
		if err := rs.waitlist.Enqueue(r); err != nil {
			return err
		}
		s.queued[r.ID] = r
	case OpDequeue:
		if _, err := rs.waitlist.RemoveByID(r.ID); err != nil {
			return err
		}
		delete(s.queued, r.ID)
	}
	return nil
}

// Get returns a reservation by id, committed or queued.
func (s *Store) Get(id uint64) (Reservation, bool) {
	if r, ok := s.active[id]; ok {
		return r, true
	}
	if r, ok := s.queued[id]; ok {
		return r, true
	}
	return Reservation{}, false
}

// WaitlistFor returns the room's queued requests in pop order.
func (s *Store) WaitlistFor(roomID uint64) []Reservation {
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return rs.waitlist.Entries()
}

// position computes the 1-based pop-order position of a queued id.
func (s *Store) position(rs *roomState, id uint64) int {
	for i, r := range rs.waitlist.Entries() {
		if r.ID == id {
			return i + 1
		}
	}
	return 0
}

// RoomStats summarizes one room's load.
type RoomStats struct {
	RoomID     uint64 `json:"room_id"`
	Active     int    `json:"active"`
	Waitlisted int    `json:"waitlisted"`
}

// Stats is the engine-wide summary served by the stats endpoint.
type Stats struct {
	Rooms       []RoomStats `json:"rooms"`
	TotalActive int         `json:"total_active"`
	TotalQueued int         `json:"total_queued"`
	UndoDepth   int         `json:"undo_depth"`
	RedoDepth   int         `json:"redo_depth"`
}

// StatsView reports per-room and global counters.
func (s *Store) StatsView() Stats {
	st := Stats{
		TotalActive: len(s.active),
		TotalQueued: len(s.queued),
		UndoDepth:   s.log.UndoDepth(),
		RedoDepth:   s.log.RedoDepth(),
	}
	for id, rs := range s.rooms {
		if rs.index.Len() == 0 && rs.waitlist.Len() == 0 {
			continue
		}
		st.Rooms = append(st.Rooms, RoomStats{
			RoomID:     id,
			Active:     rs.index.Len(),
			Waitlisted: rs.waitlist.Len(),
		})
	}
	sort.Slice(st.Rooms, func(i, j int) bool { return st.Rooms[i].RoomID < st.Rooms[j].RoomID })
	return st
}
