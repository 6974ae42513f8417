package engine

import (
	"container/heap"
	"sort"
)

// PriorityWaitlist holds the requests queued against one room, ordered
// by (priority descending, arrival sequence ascending). Two entries
// never compare equal: Seq is unique per request and never reused, so
// pop order is fully deterministic.
type PriorityWaitlist struct {
	h       entryHeap
	maxSize int // 0 = unbounded
}

// NewPriorityWaitlist returns an empty waitlist. maxSize of zero means
// no bound; a positive value makes Enqueue fail with
// ErrCapacityExceeded once reached.
func NewPriorityWaitlist(maxSize int) *PriorityWaitlist {
	return &PriorityWaitlist{maxSize: maxSize}
}

// Len reports the number of queued entries.
func (w *PriorityWaitlist) Len() int { return len(w.h) }

// Enqueue adds a queued reservation in O(log n).
func (w *PriorityWaitlist) Enqueue(r Reservation) error {
	if w.maxSize > 0 && len(w.h) >= w.maxSize {
		return ErrCapacityExceeded
	}
	r.Status = StatusQueued
	heap.Push(&w.h, r)
	return nil
}

// PeekBest returns the entry that PopBest would remove, without
// removing it.
func (w *PriorityWaitlist) PeekBest() (Reservation, bool) {
	if len(w.h) == 0 {
		return Reservation{}, false
	}
	return w.h[0], true
}

// PopBest removes and returns the highest-priority, earliest-arrived
// entry in O(log n).
func (w *PriorityWaitlist) PopBest() (Reservation, error) {
	if len(w.h) == 0 {
		return Reservation{}, ErrEmptyQueue
	}
	return heap.Pop(&w.h).(Reservation), nil
}

// RemoveByID removes a specific queued reservation, used when a queued
// request is withdrawn or promoted out of order. O(n) scan plus
// re-heapify.
func (w *PriorityWaitlist) RemoveByID(id uint64) (Reservation, error) {
	for i, r := range w.h {
		if r.ID == id {
			return heap.Remove(&w.h, i).(Reservation), nil
		}
	}
	return Reservation{}, ErrNotFound
}

// Entries returns the queued reservations in pop order without
// disturbing the heap. Used for promotion scans, snapshots and API
// listings.
func (w *PriorityWaitlist) Entries() []Reservation {
	out := make([]Reservation, len(w.h))
	copy(out, w.h)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// less is the waitlist's total order: higher priority first, earlier
// arrival breaking ties.
func less(a, b Reservation) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Seq < b.Seq
}

// entryHeap adapts a reservation slice to container/heap.
type entryHeap []Reservation

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)         { *h = append(*h, x.(Reservation)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	*h = old[:n-1]
	return r
}
