package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/handler"
	"github.com/iliyamo/room-reservation/internal/middleware"
)

// RegisterRooms registers room browsing and management endpoints under
// /v1. Reading rooms needs any authenticated role; creating, updating
// and deactivating require ADMIN. The optional cache middleware wraps
// the read endpoints only, since room records change rarely.
func RegisterRooms(e *echo.Echo, h *handler.RoomHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ADMIN"),
	)
	if cache != nil {
		g.GET("/rooms", h.ListRooms, cache)
		g.GET("/rooms/:id", h.GetRoom, cache)
	} else {
		g.GET("/rooms", h.ListRooms)
		g.GET("/rooms/:id", h.GetRoom)
	}

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.POST("/rooms", h.CreateRoom)
	admin.PUT("/rooms/:id", h.UpdateRoom)
	admin.PATCH("/rooms/:id", h.UpdateRoom)
	admin.DELETE("/rooms/:id", h.DeactivateRoom)
}

// RegisterReservations registers the reservation engine's endpoints
// under /v1. All routes require a valid JWT; undo and redo rewrite
// global state and are ADMIN-only.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ADMIN"),
	)
	g.POST("/rooms/:id/reservations", h.CreateReservation)
	g.GET("/rooms/:id/reservations", h.QueryReservations)
	g.GET("/rooms/:id/availability", h.Availability)
	g.DELETE("/reservations/:id", h.CancelReservation)
	g.DELETE("/waitlist/:id", h.Withdraw)
	g.GET("/stats", h.Stats)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.POST("/undo", h.Undo)
	admin.POST("/redo", h.Redo)
}
