package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/granada-sport/server/internal/database"
	"github.com/granada-sport/server/internal/model"
)

const userColumns = "id, email, name, last_name, second_last_name, password_hash, active, created_at, updated_at"

const (
	qInsertUser = `INSERT INTO users (email, name, last_name, second_last_name, password_hash, active, created_at, updated_at)
	               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	qUserByEmail   = "SELECT " + userColumns + " FROM users WHERE email = ? LIMIT 1"
	qUserByID      = "SELECT " + userColumns + " FROM users WHERE id = ? LIMIT 1"
	qUpdateProfile = `UPDATE users
	                  SET email = ?, name = ?, last_name = ?, second_last_name = ?, updated_at = ?
	                  WHERE id = ?`
	qUpdatePassword = "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?"
	qDeactivateUser = "UPDATE users SET active = 0, updated_at = ? WHERE id = ?"
)

// UserRepo persists users in the `users` table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts u and assigns the generated ID.  A second account with the
// same email fails with ErrDuplicate through the unique index.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qInsertUser,
			u.Email, u.Name, u.LastName, nullString(u.SecondLastName), u.PasswordHash, u.Active, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		u.ID = uint64(id)
		return nil
	})
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, qUserByEmail, email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, qUserByID, id))
}

// UpdateProfile overwrites the identity fields of user id and returns the
// stored row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p model.Profile, now time.Time) (model.User, error) {
	var out model.User
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qUpdateProfile,
			p.Email, p.Name, p.LastName, nullString(p.SecondLastName), now, id)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		out, err = scanUser(tx.QueryRowContext(ctx, qUserByID, id))
		return err
	})
	return out, err
}

// UpdatePassword stores a new password hash for user id.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string, now time.Time) (model.User, error) {
	var out model.User
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qUpdatePassword, hash, now, id)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		out, err = scanUser(tx.QueryRowContext(ctx, qUserByID, id))
		return err
	})
	return out, err
}

// Deactivate soft-deletes user id.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64, now time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qDeactivateUser, now, id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u      model.User
		second sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.LastName, &second, &u.PasswordHash, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.SecondLastName = stringPtr(second)
	return u, nil
}

// requireAffected maps a zero-row UPDATE to ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
