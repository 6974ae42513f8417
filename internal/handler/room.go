package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/engine"
	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/repository"
)

// RoomHandler manages room records. Rooms are durable MySQL rows; the
// handler consults the engine only to refuse deactivating a room that
// still has committed reservations.
type RoomHandler struct {
	Rooms  *repository.RoomRepo
	Engine *engine.Store
	Res    *ReservationHandler // shares the engine mutex
}

func NewRoomHandler(rooms *repository.RoomRepo, st *engine.Store, res *ReservationHandler) *RoomHandler {
	if rooms == nil || st == nil || res == nil {
		panic("nil dependency passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Engine: st, Res: res}
}

type roomReq struct {
	Name            string `json:"name"`
	Capacity        uint32 `json:"capacity"`
	Floor           int32  `json:"floor"`
	HourlyRateCents uint32 `json:"hourly_rate_cents"`
}

type roomView struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	Capacity        uint32 `json:"capacity"`
	Floor           int32  `json:"floor"`
	HourlyRateCents uint32 `json:"hourly_rate_cents"`
	IsActive        bool   `json:"is_active"`
}

func roomToView(m *model.Room) roomView {
	return roomView{
		ID:              m.ID,
		Name:            m.Name,
		Capacity:        m.Capacity,
		Floor:           m.Floor,
		HourlyRateCents: m.HourlyRateCents,
		IsActive:        m.IsActive,
	}
}

// CreateRoom handles POST /v1/rooms (admin only via router).
func (h *RoomHandler) CreateRoom(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	m := &model.Room{
		OwnerID:         userID,
		Name:            req.Name,
		Capacity:        req.Capacity,
		Floor:           req.Floor,
		HourlyRateCents: req.HourlyRateCents,
	}
	if err := h.Rooms.Create(c.Request().Context(), m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	return c.JSON(http.StatusCreated, roomToView(m))
}

// ListRooms handles GET /v1/rooms. Optional ?min_capacity and ?floor
// query parameters narrow the result; only active rooms are listed.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	var minCap *uint32
	if s := c.QueryParam("min_capacity"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_capacity"})
		}
		v := uint32(n)
		minCap = &v
	}
	var floor *int32
	if s := c.QueryParam("floor"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid floor"})
		}
		v := int32(n)
		floor = &v
	}

	rooms, err := h.Rooms.ListActive(c.Request().Context(), minCap, floor)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]roomView, len(rooms))
	for i, m := range rooms {
		out[i] = roomToView(m)
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// GetRoom handles GET /v1/rooms/:id.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	m, err := h.Rooms.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, roomToView(m))
}

// UpdateRoom handles PUT /v1/rooms/:id; only the owner may update.
func (h *RoomHandler) UpdateRoom(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and capacity are required"})
	}

	m := &model.Room{
		ID:              id,
		Name:            req.Name,
		Capacity:        req.Capacity,
		Floor:           req.Floor,
		HourlyRateCents: req.HourlyRateCents,
	}
	if err := h.Rooms.Update(c.Request().Context(), m, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
	}
	return c.JSON(http.StatusOK, roomToView(m))
}

// DeactivateRoom handles DELETE /v1/rooms/:id. A room with committed
// or waitlisted reservations cannot be deactivated; cancel them first.
func (h *RoomHandler) DeactivateRoom(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	h.Res.mu.Lock()
	stats := h.Engine.StatsView()
	h.Res.mu.Unlock()
	for _, rs := range stats.Rooms {
		if rs.RoomID == id && (rs.Active > 0 || rs.Waitlisted > 0) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room still has reservations"})
		}
	}

	if err := h.Rooms.SetActive(c.Request().Context(), id, userID, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate room failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
