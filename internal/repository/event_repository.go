// This file defines repository methods for events.  Every query that
// serves an organizer is scoped by organizer_id, and every query that
// serves the public listing or the ledger is scoped by active and
// starts_at.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/granada-sport/server/internal/database"
	"github.com/granada-sport/server/internal/model"
)

const eventColumns = "id, organizer_id, description, starts_at, location, sport, active, created_at, updated_at"

const (
	qInsertEvent = `INSERT INTO events (organizer_id, description, starts_at, location, sport, active, created_at, updated_at)
	                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	qEventByID         = "SELECT " + eventColumns + " FROM events WHERE id = ?"
	qEventOwned        = "SELECT " + eventColumns + " FROM events WHERE id = ? AND organizer_id = ? AND active = 1"
	qEventUpcoming     = "SELECT " + eventColumns + " FROM events WHERE id = ? AND active = 1 AND starts_at >= ?"
	qListUpcoming      = "SELECT " + eventColumns + " FROM events WHERE active = 1 AND starts_at >= ? ORDER BY id LIMIT ? OFFSET ?"
	qListUpcomingSport = "SELECT " + eventColumns + " FROM events WHERE active = 1 AND starts_at >= ? AND sport = ? ORDER BY id LIMIT ? OFFSET ?"
	qListByOrganizer   = "SELECT " + eventColumns + " FROM events WHERE organizer_id = ? AND active = 1 ORDER BY id LIMIT ? OFFSET ?"
	qUpdateEventOwned  = `UPDATE events
	                      SET description = ?, starts_at = ?, location = ?, sport = ?, updated_at = ?
	                      WHERE id = ? AND organizer_id = ? AND active = 1`
	qDeactivateEventOwned = "UPDATE events SET active = 0, updated_at = ? WHERE id = ? AND organizer_id = ? AND active = 1"
)

// EventRepo persists events in the `events` table.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Create inserts e and assigns the generated ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qInsertEvent,
			e.OrganizerID, e.Description, e.Date, e.Location, e.Sport, e.Active, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		e.ID = uint64(id)
		return nil
	})
}

// GetOwned returns event id only when it is active and organized by
// organizerID.
func (r *EventRepo) GetOwned(ctx context.Context, id, organizerID uint64) (model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, qEventOwned, id, organizerID))
}

// GetUpcoming returns event id only when it is active and starts at or
// after now.
func (r *EventRepo) GetUpcoming(ctx context.Context, id uint64, now time.Time) (model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, qEventUpcoming, id, now))
}

// ListUpcoming returns active events starting at or after now, optionally
// restricted to one sport.  sport must already be normalized.
func (r *EventRepo) ListUpcoming(ctx context.Context, sport string, now time.Time, skip, limit int) ([]model.Event, error) {
	if sport != "" {
		return r.list(ctx, qListUpcomingSport, now, sport, limit, skip)
	}
	return r.list(ctx, qListUpcoming, now, limit, skip)
}

// ListByOrganizer returns the organizer's active events, past ones included.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64, skip, limit int) ([]model.Event, error) {
	return r.list(ctx, qListByOrganizer, organizerID, limit, skip)
}

// UpdateOwned overwrites the details of an active event owned by
// organizerID and returns the stored row.
func (r *EventRepo) UpdateOwned(ctx context.Context, id, organizerID uint64, d model.EventDetails, now time.Time) (model.Event, error) {
	var out model.Event
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qUpdateEventOwned,
			d.Description, d.Date, d.Location, d.Sport, now, id, organizerID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		out, err = scanEvent(tx.QueryRowContext(ctx, qEventByID, id))
		return err
	})
	return out, err
}

// DeactivateOwned soft-deletes an active event owned by organizerID.
// Missing, foreign and already inactive events all yield ErrNotFound.
func (r *EventRepo) DeactivateOwned(ctx context.Context, id, organizerID uint64, now time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qDeactivateEventOwned, now, id, organizerID)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func (r *EventRepo) list(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEvent(row rowScanner) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Description, &e.Date, &e.Location, &e.Sport, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, err
	}
	return e, nil
}
