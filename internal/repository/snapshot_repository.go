// This file persists the reservation engine's state. The engine is
// authoritative while the process runs; the database only has to hold
// a consistent snapshot so a restart can pick up where the previous
// process left off. Each Save rewrites the full state inside one
// transaction, which keeps the schema trivial and the restore path
// free of reconciliation logic.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/room-reservation/internal/engine"
)

// SnapshotRepo reads and writes engine snapshots. Committed and
// waitlisted reservations share the `reservation_state` table and are
// told apart by their status column; the id and sequence counters live
// in the single-row `engine_counters` table.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo constructs a SnapshotRepo with the provided DB handle.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save replaces the persisted state with the snapshot. The delete and
// the inserts run in one transaction so a crash mid-save never leaves
// a half-written snapshot behind.
func (r *SnapshotRepo) Save(ctx context.Context, snap engine.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM reservation_state`); err != nil {
		return err
	}

	const qInsert = `INSERT INTO reservation_state
	                 (id, room_id, owner_id, start_at, end_at, priority, seq, status)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insert := func(rows []engine.Reservation) error {
		for _, res := range rows {
			if _, err := tx.ExecContext(ctx, qInsert,
				res.ID, res.RoomID, res.OwnerID, res.Start, res.End, res.Priority, res.Seq, res.Status,
			); err != nil {
				return err
			}
		}
		return nil
	}
	if err = insert(snap.Committed); err != nil {
		return err
	}
	if err = insert(snap.Waitlist); err != nil {
		return err
	}

	const qCounters = `INSERT INTO engine_counters (id, next_id, next_seq)
	                   VALUES (1, ?, ?)
	                   ON DUPLICATE KEY UPDATE next_id = VALUES(next_id), next_seq = VALUES(next_seq)`
	_, err = tx.ExecContext(ctx, qCounters, snap.NextID, snap.NextSeq)
	return err
}

// Load reads the persisted snapshot. A database that has never been
// saved to yields an empty snapshot, not an error.
func (r *SnapshotRepo) Load(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot

	err := r.db.QueryRowContext(ctx,
		`SELECT next_id, next_seq FROM engine_counters WHERE id = 1`,
	).Scan(&snap.NextID, &snap.NextSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return engine.Snapshot{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, room_id, owner_id, start_at, end_at, priority, seq, status
		 FROM reservation_state ORDER BY id`)
	if err != nil {
		return engine.Snapshot{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var res engine.Reservation
		if err := rows.Scan(
			&res.ID, &res.RoomID, &res.OwnerID, &res.Start, &res.End, &res.Priority, &res.Seq, &res.Status,
		); err != nil {
			return engine.Snapshot{}, err
		}
		switch res.Status {
		case engine.StatusQueued:
			snap.Waitlist = append(snap.Waitlist, res)
		default:
			snap.Committed = append(snap.Committed, res)
		}
	}
	if err := rows.Err(); err != nil {
		return engine.Snapshot{}, err
	}
	return snap, nil
}
