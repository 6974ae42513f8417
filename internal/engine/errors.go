// Package engine implements the in-memory temporal-conflict core of the
// reservation service: a per-room augmented interval tree, a priority
// waitlist, a stateless conflict resolver and a transactional undo/redo
// log, all orchestrated by Store. The engine is single-threaded by
// design; callers serialize access (the HTTP layer holds one mutex for
// the duration of each Store call).
package engine

import "errors"

// ErrInvalidRange is returned when a reservation request has
// start >= end. Intervals are half-open [start, end), so a
// zero-width or negative range can never be committed.
var ErrInvalidRange = errors.New("invalid range: start must be before end")

// ErrConflict is returned by Store.Create when the request could not
// be accepted and was queued on the room's waitlist instead. It is a
// distinct outcome rather than a hard failure: the accompanying
// CreateResult carries the queued entry and its position, and callers
// must branch on it.
var ErrConflict = errors.New("conflict: request queued")

// ErrNotFound is returned when a reservation id is unknown to the
// structure being asked (committed index, or waitlist for withdraw).
var ErrNotFound = errors.New("reservation not found")

// ErrEmptyUndo is returned by Undo when no mutation remains to revert.
var ErrEmptyUndo = errors.New("undo history is empty")

// ErrEmptyRedo is returned by Redo when no reverted mutation remains.
var ErrEmptyRedo = errors.New("redo history is empty")

// ErrEmptyQueue is returned by PopBest on an empty waitlist.
var ErrEmptyQueue = errors.New("waitlist is empty")

// ErrCapacityExceeded is returned when a configured limit (waitlist
// size) would be exceeded by the operation. Nothing is mutated when
// this error is returned.
var ErrCapacityExceeded = errors.New("capacity exceeded")
