// Package repository contains data access logic separated from HTTP handlers.
// This file defines repository methods for CRUD and lookup operations on
// rooms. A room is the durable half of the domain: its reservations are
// held by the in-memory engine, while the room record itself lives in
// the `rooms` table.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/room-reservation/internal/model"
)

// ErrRoomNotFound is returned when a room cannot be found in the DB.
var ErrRoomNotFound = errors.New("room not found")

// RoomRepo encapsulates all database queries related to rooms. It
// depends on a sql.DB connection configured elsewhere.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the provided DB handle. This
// allows dependency injection of the database in tests and at startup.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Create inserts a new room. On success the room's ID field is
// populated with the auto-generated value and the timestamp fields are
// read back so callers receive a fully populated record.
func (r *RoomRepo) Create(ctx context.Context, m *model.Room) error {
	const qInsert = `INSERT INTO rooms (owner_id, name, capacity, floor, hourly_rate_cents)
	                 VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, m.OwnerID, m.Name, m.Capacity, m.Floor, m.HourlyRateCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)

	const qSelect = `SELECT is_active, created_at, updated_at FROM rooms WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, m.ID).Scan(&m.IsActive, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID fetches a room by its ID regardless of owner. It returns
// ErrRoomNotFound if no row is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT id, owner_id, name, capacity, floor, hourly_rate_cents, is_active, created_at, updated_at
	           FROM rooms WHERE id = ?`
	var m model.Room
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&m.ID, &m.OwnerID, &m.Name, &m.Capacity, &m.Floor, &m.HourlyRateCents,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListActive returns every active room ordered by id. minCapacity and
// floor narrow the result when non-nil; they map to the browse
// endpoint's query parameters.
func (r *RoomRepo) ListActive(ctx context.Context, minCapacity *uint32, floor *int32) ([]*model.Room, error) {
	q := `SELECT id, owner_id, name, capacity, floor, hourly_rate_cents, is_active, created_at, updated_at
	      FROM rooms WHERE is_active = 1`
	args := make([]any, 0, 2)
	if minCapacity != nil {
		q += ` AND capacity >= ?`
		args = append(args, *minCapacity)
	}
	if floor != nil {
		q += ` AND floor = ?`
		args = append(args, *floor)
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Room
	for rows.Next() {
		m := new(model.Room)
		if err := rows.Scan(
			&m.ID, &m.OwnerID, &m.Name, &m.Capacity, &m.Floor, &m.HourlyRateCents,
			&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByOwner returns all rooms for a specific owner ordered by id,
// inactive ones included.
func (r *RoomRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Room, error) {
	const q = `SELECT id, owner_id, name, capacity, floor, hourly_rate_cents, is_active, created_at, updated_at
	           FROM rooms WHERE owner_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Room
	for rows.Next() {
		m := new(model.Room)
		if err := rows.Scan(
			&m.ID, &m.OwnerID, &m.Name, &m.Capacity, &m.Floor, &m.HourlyRateCents,
			&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes a room's mutable fields if it belongs to the provided
// owner. It returns sql.ErrNoRows when no row is affected (not found
// or not owned).
func (r *RoomRepo) Update(ctx context.Context, m *model.Room, ownerID uint64) error {
	const q = `UPDATE rooms
	           SET name = ?, capacity = ?, floor = ?, hourly_rate_cents = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, m.Name, m.Capacity, m.Floor, m.HourlyRateCents, m.ID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive flips a room's is_active flag. It distinguishes a missing
// room (sql.ErrNoRows) from one owned by somebody else (ErrForbidden).
// Whether the room may actually be deactivated (no committed
// reservations left) is the handler's call, since the engine, not the
// database, knows the live bookings.
func (r *RoomRepo) SetActive(ctx context.Context, id, ownerID uint64, active bool) error {
	var dbOwnerID uint64
	if err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM rooms WHERE id = ?`, id).Scan(&dbOwnerID); err != nil {
		return err
	}
	if dbOwnerID != ownerID {
		return ErrForbidden
	}
	const q = `UPDATE rooms
	           SET is_active = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, active, id)
	return err
}
