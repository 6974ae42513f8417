package model

import "time"

// Room represents a bookable meeting room registered by a user.
// Reservations against a room live in the in-memory engine; the
// room record itself is durable and corresponds to a row in the
// `rooms` table.
//
// Fields:
//  ID              – primary key identifier.
//  OwnerID         – user ID of the room's owner.
//  Name            – unique room name per owner.
//  Capacity        – number of people the room holds.
//  Floor           – floor the room is located on.
//  HourlyRateCents – booking price per hour in cents.
//  IsActive        – whether the room accepts new reservations.
//  CreatedAt       – timestamp when the room was created.
//  UpdatedAt       – timestamp of last update.
type Room struct {
	ID              uint64    // rooms.id
	OwnerID         uint64    // rooms.owner_id
	Name            string    // rooms.name
	Capacity        uint32    // rooms.capacity
	Floor           int32     // rooms.floor
	HourlyRateCents uint32    // rooms.hourly_rate_cents
	IsActive        bool      // rooms.is_active
	CreatedAt       time.Time // rooms.created_at
	UpdatedAt       time.Time // rooms.updated_at
}
