package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/engine"
	"github.com/iliyamo/room-reservation/internal/queue"
	"github.com/iliyamo/room-reservation/internal/repository"
	queue_publisher "github.com/iliyamo/room-reservation/internal/service"
)

// ReservationHandler exposes the reservation engine over HTTP. The
// engine itself is single-threaded, so every store call runs under mu;
// the snapshot written to MySQL after a mutation is taken while the
// lock is still held, which keeps the persisted state consistent with
// what the caller observed.
type ReservationHandler struct {
	mu        sync.Mutex
	Engine    *engine.Store
	Rooms     *repository.RoomRepo
	Snapshots *repository.SnapshotRepo
}

// NewReservationHandler constructs the handler. Snapshots may be nil
// in tests; persistence is then skipped.
func NewReservationHandler(st *engine.Store, rooms *repository.RoomRepo, snaps *repository.SnapshotRepo) *ReservationHandler {
	if st == nil {
		panic("nil engine store passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: st, Rooms: rooms, Snapshots: snaps}
}

// ----- DTOs -----

type createReservationReq struct {
	StartsAt  string `json:"starts_at"` // RFC3339
	EndsAt    string `json:"ends_at"`   // RFC3339
	Priority  int    `json:"priority"`
	Attendees uint32 `json:"attendees"`
}

// reservationView is the wire form of an engine reservation; instants
// become RFC3339 UTC timestamps.
type reservationView struct {
	ID       uint64 `json:"id"`
	RoomID   uint64 `json:"room_id"`
	OwnerID  uint64 `json:"owner_id"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Priority int    `json:"priority"`
	Status   string `json:"status"`
}

func toView(r engine.Reservation) reservationView {
	return reservationView{
		ID:       r.ID,
		RoomID:   r.RoomID,
		OwnerID:  r.OwnerID,
		StartsAt: time.Unix(r.Start, 0).UTC().Format(time.RFC3339),
		EndsAt:   time.Unix(r.End, 0).UTC().Format(time.RFC3339),
		Priority: r.Priority,
		Status:   r.Status,
	}
}

func toViews(rs []engine.Reservation) []reservationView {
	out := make([]reservationView, len(rs))
	for i, r := range rs {
		out[i] = toView(r)
	}
	return out
}

func parseRFC3339(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// persistLocked saves the current snapshot to MySQL. Callers must hold
// mu. Persistence failures are logged, never surfaced: the engine is
// authoritative while the process lives.
func (h *ReservationHandler) persistLocked() {
	if h.Snapshots == nil {
		return
	}
	snap := h.Engine.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Snapshots.Save(ctx, snap); err != nil {
		log.Printf("reservation: snapshot save failed: %v", err)
	}
}

// publish emits a reservation event in the background; delivery is
// best-effort by design.
func publish(evType, roomName string, r engine.Reservation) {
	ev := queue.ReservationEvent{
		Type:          evType,
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		RoomName:      roomName,
		UserID:        r.OwnerID,
		StartsAt:      time.Unix(r.Start, 0).UTC().Format(time.RFC3339),
		EndsAt:        time.Unix(r.End, 0).UTC().Format(time.RFC3339),
		Priority:      r.Priority,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishReservationEvent(ctx, ev)
	}()
}

// CreateReservation handles POST /v1/rooms/:id/reservations. The room
// must exist, be active and hold the requested attendee count. The
// engine then either commits the reservation (possibly bumping
// lower-priority conflicts to the waitlist, 201) or queues it (202).
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, err := parseRFC3339(req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	end, err := parseRFC3339(req.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
	}

	room, err := h.Rooms.GetByID(c.Request().Context(), roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !room.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is not active"})
	}
	if req.Attendees > room.Capacity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attendees exceed room capacity"})
	}

	h.mu.Lock()
	res, err := h.Engine.Create(roomID, start, end, req.Priority, userID)
	if err == nil || errors.Is(err, engine.ErrConflict) {
		h.persistLocked()
	}
	h.mu.Unlock()

	switch {
	case err == nil:
		publish(queue.EventConfirmed, room.Name, res.Reservation)
		for _, loser := range res.Evicted {
			publish(queue.EventEvicted, room.Name, loser)
		}
		return c.JSON(http.StatusCreated, echo.Map{
			"outcome":     "accepted",
			"reservation": toView(res.Reservation),
			"evicted":     toViews(res.Evicted),
		})
	case errors.Is(err, engine.ErrConflict):
		publish(queue.EventQueued, room.Name, res.Reservation)
		return c.JSON(http.StatusAccepted, echo.Map{
			"outcome":     "queued",
			"reservation": toView(res.Reservation),
			"position":    res.Position,
		})
	case errors.Is(err, engine.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be before ends_at"})
	case errors.Is(err, engine.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "waitlist is full"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
	}
}

// CancelReservation handles DELETE /v1/reservations/:id. Only the
// reservation's owner or an admin may cancel. A freed slot may promote
// a waitlisted request; both sides are reported.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	h.mu.Lock()
	cur, ok := h.Engine.Get(id)
	if ok && cur.OwnerID != userID && !isAdmin(c) {
		h.mu.Unlock()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	res, err := h.Engine.Cancel(id)
	if err == nil {
		h.persistLocked()
	}
	h.mu.Unlock()

	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}

	publish(queue.EventCancelled, "", res.Cancelled)
	body := echo.Map{"cancelled": toView(res.Cancelled)}
	if res.Promoted != nil {
		publish(queue.EventPromoted, "", *res.Promoted)
		body["promoted"] = toView(*res.Promoted)
	}
	return c.JSON(http.StatusOK, body)
}

// QueryReservations handles GET /v1/rooms/:id/reservations?from&to and
// returns every committed reservation intersecting the window, ordered
// by start time.
func (h *ReservationHandler) QueryReservations(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	from, err := parseRFC3339(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC3339"})
	}
	to, err := parseRFC3339(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be RFC3339"})
	}
	if from >= to {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be before to"})
	}

	h.mu.Lock()
	out := h.Engine.QueryOverlap(roomID, from, to)
	wl := h.Engine.WaitlistFor(roomID)
	h.mu.Unlock()

	return c.JSON(http.StatusOK, echo.Map{
		"reservations": toViews(out),
		"waitlist":     toViews(wl),
	})
}

// Availability handles GET /v1/rooms/:id/availability?from&to&duration_min.
// It walks the committed reservations inside the window and reports
// every free gap at least duration_min long.
func (h *ReservationHandler) Availability(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	from, err := parseRFC3339(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC3339"})
	}
	to, err := parseRFC3339(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be RFC3339"})
	}
	durMin, err := strconv.Atoi(c.QueryParam("duration_min"))
	if err != nil || durMin <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min must be a positive integer"})
	}
	if from >= to {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be before to"})
	}
	duration := int64(durMin) * 60

	h.mu.Lock()
	busy := h.Engine.QueryOverlap(roomID, from, to)
	h.mu.Unlock()

	type slot struct {
		StartsAt string `json:"starts_at"`
		EndsAt   string `json:"ends_at"`
	}
	var free []slot
	cursor := from
	for _, r := range busy {
		if r.Start > cursor && r.Start-cursor >= duration {
			free = append(free, slot{
				StartsAt: time.Unix(cursor, 0).UTC().Format(time.RFC3339),
				EndsAt:   time.Unix(r.Start, 0).UTC().Format(time.RFC3339),
			})
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if to > cursor && to-cursor >= duration {
		free = append(free, slot{
			StartsAt: time.Unix(cursor, 0).UTC().Format(time.RFC3339),
			EndsAt:   time.Unix(to, 0).UTC().Format(time.RFC3339),
		})
	}
	if free == nil {
		free = []slot{}
	}
	return c.JSON(http.StatusOK, echo.Map{"free_slots": free})
}

// Withdraw handles DELETE /v1/waitlist/:id and removes a queued
// request that no longer wants the slot.
func (h *ReservationHandler) Withdraw(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	h.mu.Lock()
	cur, ok := h.Engine.Get(id)
	if ok && cur.OwnerID != userID && !isAdmin(c) {
		h.mu.Unlock()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	res, err := h.Engine.WithdrawFromWaitlist(id)
	if err == nil {
		h.persistLocked()
	}
	h.mu.Unlock()

	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "withdraw failed"})
	}
	publish(queue.EventCancelled, "", res)
	return c.JSON(http.StatusOK, echo.Map{"withdrawn": toView(res)})
}

// Undo handles POST /v1/undo (admin only via router). It reverts the
// most recent mutation group as one unit.
func (h *ReservationHandler) Undo(c echo.Context) error {
	h.mu.Lock()
	g, err := h.Engine.Undo()
	if err == nil {
		h.persistLocked()
	}
	h.mu.Unlock()

	if err != nil {
		if errors.Is(err, engine.ErrEmptyUndo) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "nothing to undo"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "undo failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"undone_group": g.ID, "operations": len(g.Records)})
}

// Redo handles POST /v1/redo (admin only via router).
func (h *ReservationHandler) Redo(c echo.Context) error {
	h.mu.Lock()
	g, err := h.Engine.Redo()
	if err == nil {
		h.persistLocked()
	}
	h.mu.Unlock()

	if err != nil {
		if errors.Is(err, engine.ErrEmptyRedo) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "nothing to redo"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redo failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"redone_group": g.ID, "operations": len(g.Records)})
}

// Stats handles GET /v1/stats.
func (h *ReservationHandler) Stats(c echo.Context) error {
	h.mu.Lock()
	st := h.Engine.StatsView()
	h.mu.Unlock()
	return c.JSON(http.StatusOK, st)
}
