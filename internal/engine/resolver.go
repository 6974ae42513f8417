package engine

// TiePolicy decides who wins when a new request's priority exactly
// equals the highest priority among the reservations it conflicts
// with. The original system never exercised this edge, so it is
// configurable rather than hardcoded.
type TiePolicy int

const (
	// TieFavorIncumbent keeps committed reservations in place on a
	// priority tie; the new request is queued. This is the default.
	TieFavorIncumbent TiePolicy = iota
	// TieFavorChallenger lets an equal-priority request evict the
	// committed reservations it conflicts with.
	TieFavorChallenger
)

// Decision is the resolver's verdict on a create request.
type Decision int

const (
	// DecisionAccept commits the request, evicting Resolution.Evict
	// first (the slice may be empty).
	DecisionAccept Decision = iota
	// DecisionQueue places the request on the room's waitlist.
	DecisionQueue
)

// Resolution is the outcome of resolving a create request: either
// accept (possibly after evicting every listed conflicting
// reservation to the waitlist) or queue the request itself.
type Resolution struct {
	Decision Decision
	Evict    []Reservation
}

// ConflictResolver is the stateless decision logic of the engine. It
// reads a room's interval index and waitlist but never mutates them;
// the store applies whatever the resolver decides.
type ConflictResolver struct {
	Ties TiePolicy
}

// ResolveCreate decides the fate of a new request against the room's
// committed reservations. lookup resolves an id from the index to its
// full reservation.
//
// No overlap accepts outright. With overlaps, the request wins only
// when its priority beats every conflicting reservation's priority
// (strictly, unless ties favor the challenger); winning evicts all of
// them, losing queues the request.
func (cr ConflictResolver) ResolveCreate(idx *IntervalIndex, lookup func(uint64) Reservation, req Reservation) Resolution {
	ids := idx.Overlap(req.Start, req.End)
	if len(ids) == 0 {
		return Resolution{Decision: DecisionAccept}
	}
	evict := make([]Reservation, 0, len(ids))
	for _, id := range ids {
		other := lookup(id)
		if !cr.beats(req.Priority, other.Priority) {
			return Resolution{Decision: DecisionQueue}
		}
		evict = append(evict, other)
	}
	return Resolution{Decision: DecisionAccept, Evict: evict}
}

func (cr ConflictResolver) beats(challenger, incumbent int) bool {
	if cr.Ties == TieFavorChallenger {
		return challenger >= incumbent
	}
	return challenger > incumbent
}

// ResolvePromotion picks the waitlist entry to promote after a slot
// freed up. Entries are considered in pop order (priority desc,
// arrival asc); the first one whose whole range now fits is returned.
// Entries that do not fit stay queued. A single cancellation frees a
// single slot, so at most one entry is promoted.
func (cr ConflictResolver) ResolvePromotion(idx *IntervalIndex, wl *PriorityWaitlist) (Reservation, bool) {
	for _, cand := range wl.Entries() {
		if len(idx.Overlap(cand.Start, cand.End)) == 0 {
			return cand, true
		}
	}
	return Reservation{}, false
}
