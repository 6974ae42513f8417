// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried by ReservationEvent.Type.
const (
	EventConfirmed = "confirmed"
	EventQueued    = "queued"
	EventEvicted   = "evicted"
	EventPromoted  = "promoted"
	EventCancelled = "cancelled"
)

// ReservationEvent is published whenever the engine changes a
// reservation's fate: committed, queued behind a conflict, bumped by a
// higher priority, promoted from the waitlist, or cancelled. It
// carries enough information for downstream consumers to log, notify,
// or trigger analytics without querying the server.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	RoomID        uint64 `json:"room_id"`
	RoomName      string `json:"room_name,omitempty"`
	UserID        uint64 `json:"user_id"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	Priority      int    `json:"priority"`
	OccurredAt    string `json:"occurred_at"`
}
