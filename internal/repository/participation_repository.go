package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/granada-sport/server/internal/database"
	"github.com/granada-sport/server/internal/model"
)

// The upsert relies on MySQL's affected-rows convention for
// INSERT ... ON DUPLICATE KEY UPDATE: 1 for an insert, 2 for an update
// that changed the row, 0 when the existing row was left as is.  The
// updated_at assignment must stay first so it reads the old active value.
const (
	qJoinParticipation = `INSERT INTO participations (event_id, user_id, active, created_at, updated_at)
	                      VALUES (?, ?, 1, ?, ?)
	                      ON DUPLICATE KEY UPDATE updated_at = IF(active = 1, updated_at, VALUES(updated_at)), active = 1`
	qLeaveParticipation = `UPDATE participations SET active = 0, updated_at = ?
	                       WHERE event_id = ? AND user_id = ? AND active = 1`
	qGetParticipation = `SELECT event_id, user_id, active, created_at, updated_at
	                     FROM participations WHERE event_id = ? AND user_id = ?`
	qActiveParticipants = `SELECT user_id FROM participations
	                       WHERE event_id = ? AND active = 1 ORDER BY created_at, user_id`
)

// ParticipationRepo persists the (event, user) join ledger.
type ParticipationRepo struct {
	db *sql.DB
}

func NewParticipationRepo(db *sql.DB) *ParticipationRepo {
	return &ParticipationRepo{db: db}
}

// Join activates the participation of userID in eventID in one statement,
// so concurrent joins of the same pair cannot create two rows.
func (r *ParticipationRepo) Join(ctx context.Context, eventID, userID uint64, now time.Time) (model.JoinOutcome, error) {
	var outcome model.JoinOutcome
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qJoinParticipation, eventID, userID, now, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		switch n {
		case 0:
			outcome = model.AlreadyJoined
		case 1:
			outcome = model.Joined
		case 2:
			outcome = model.Rejoined
		default:
			return fmt.Errorf("join participation: unexpected rows affected %d", n)
		}
		return nil
	})
	return outcome, err
}

// Leave deactivates an active participation.  ErrNotFound is returned when
// the pair never joined or already left.
func (r *ParticipationRepo) Leave(ctx context.Context, eventID, userID uint64, now time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qLeaveParticipation, now, eventID, userID)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// Get returns the participation row for the pair, active or not.
func (r *ParticipationRepo) Get(ctx context.Context, eventID, userID uint64) (model.Participation, error) {
	var p model.Participation
	err := r.db.QueryRowContext(ctx, qGetParticipation, eventID, userID).
		Scan(&p.EventID, &p.UserID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Participation{}, ErrNotFound
		}
		return model.Participation{}, err
	}
	return p, nil
}

// ListActiveUserIDs returns the ids of users currently participating in
// eventID, in join order.
func (r *ParticipationRepo) ListActiveUserIDs(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, qActiveParticipants, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
