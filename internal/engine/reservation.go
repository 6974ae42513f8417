package engine

// Reservation status values. A reservation is ACTIVE while it occupies
// its room's interval index, QUEUED while it waits on the room's
// waitlist, and CANCELLED once removed for good. Start, End and
// Priority never change after the request is first seen; only Status
// moves.
const (
	StatusActive    = "ACTIVE"
	StatusQueued    = "QUEUED"
	StatusCancelled = "CANCELLED"
)

// Reservation is the engine's unit of work: one claim on a half-open
// time range [Start, End) of a single room. Instants are int64 values
// (the service layer uses Unix seconds; the engine only compares them).
//
// Seq is the monotonically increasing arrival sequence assigned by the
// store when the request is first created. It breaks priority ties on
// the waitlist and survives eviction: a reservation bumped off the
// index keeps its original Seq so it does not lose its place in line.
type Reservation struct {
	ID       uint64 `json:"id"`
	RoomID   uint64 `json:"room_id"`
	OwnerID  uint64 `json:"owner_id"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Priority int    `json:"priority"`
	Seq      uint64 `json:"seq"`
	Status   string `json:"status"`
}

// Overlaps reports whether the reservation's range intersects the
// half-open probe [start, end).
func (r Reservation) Overlaps(start, end int64) bool {
	return r.Start < end && r.End > start
}
