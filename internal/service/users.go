package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/granada-sport/server/internal/auth"
	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/queue"
	"github.com/granada-sport/server/internal/repository"
)

// UserStore is the persistence needed by UserDirectory.  It is satisfied by
// *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, p model.Profile, now time.Time) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string, now time.Time) (model.User, error)
	Deactivate(ctx context.Context, id uint64, now time.Time) error
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email          string
	Name           string
	LastName       string
	SecondLastName *string
	Password       string
}

// UserDirectory owns account lifecycle: registration, profile and password
// changes and soft deletion.
type UserDirectory struct {
	users      UserStore
	bcryptCost int
	activity   ActivityRecorder
	logger     zerolog.Logger
	now        Clock
}

// NewUserDirectory wires a directory over users.  activity may be nil.
func NewUserDirectory(users UserStore, bcryptCost int, activity ActivityRecorder, logger zerolog.Logger) *UserDirectory {
	if activity == nil {
		activity = nopActivity{}
	}
	return &UserDirectory{
		users:      users,
		bcryptCost: bcryptCost,
		activity:   activity,
		logger:     logger.With().Str("component", "user-directory").Logger(),
		now:        systemClock,
	}
}

// WithClock replaces the time source, for tests.
func (d *UserDirectory) WithClock(now Clock) *UserDirectory {
	d.now = now
	return d
}

// Register creates an active account.  A taken email yields ErrConflict.
func (d *UserDirectory) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	hash, err := auth.HashPassword(in.Password, d.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := d.now()
	u := model.User{
		Email:          in.Email,
		Name:           lower(in.Name),
		LastName:       lower(in.LastName),
		SecondLastName: lowerPtr(in.SecondLastName),
		PasswordHash:   hash,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := d.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, ErrConflict
		}
		d.logger.Error().Err(err).Msg("create user failed")
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	d.record(ctx, queue.NewActivity(queue.KindUserRegistered, u.ID, 0, "", now))
	return u, nil
}

// FindByEmail looks a user up by exact email, active or not.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := d.users.GetByEmail(ctx, email)
	return u, d.mapErr(err, "get user by email")
}

// Get looks a user up by id, active or not.
func (d *UserDirectory) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := d.users.GetByID(ctx, id)
	return u, d.mapErr(err, "get user")
}

// UpdateProfile overwrites the identity fields of user id.
func (d *UserDirectory) UpdateProfile(ctx context.Context, id uint64, p model.Profile) (model.User, error) {
	p.Name = lower(p.Name)
	p.LastName = lower(p.LastName)
	p.SecondLastName = lowerPtr(p.SecondLastName)

	u, err := d.users.UpdateProfile(ctx, id, p, d.now())
	if errors.Is(err, repository.ErrDuplicate) {
		return model.User{}, ErrConflict
	}
	return u, d.mapErr(err, "update profile")
}

// UpdatePassword replaces the password of user id.
func (d *UserDirectory) UpdatePassword(ctx context.Context, id uint64, plaintext string) (model.User, error) {
	hash, err := auth.HashPassword(plaintext, d.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := d.users.UpdatePassword(ctx, id, hash, d.now())
	return u, d.mapErr(err, "update password")
}

// Deactivate soft-deletes user id.  Deactivating twice is not an error.
func (d *UserDirectory) Deactivate(ctx context.Context, id uint64) error {
	now := d.now()
	if err := d.mapErr(d.users.Deactivate(ctx, id, now), "deactivate user"); err != nil {
		return err
	}
	d.record(ctx, queue.NewActivity(queue.KindUserDeactivated, id, 0, "", now))
	return nil
}

func (d *UserDirectory) mapErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		d.logger.Error().Err(err).Str("op", op).Msg("storage failure")
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (d *UserDirectory) record(ctx context.Context, ev queue.ActivityEvent) {
	if err := d.activity.Record(ctx, ev); err != nil {
		d.logger.Warn().Err(err).Str("kind", ev.Kind).Msg("activity not recorded")
	}
}

func lowerPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := lower(*s)
	return &v
}
