package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/granada-sport/server/internal/auth"
	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/queue"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newDirectory(store *memStore, rec *recorder) *UserDirectory {
	var activity ActivityRecorder
	if rec != nil {
		activity = rec
	}
	return NewUserDirectory(store, bcrypt.MinCost, activity, zerolog.Nop()).WithClock(fixedClock(t0))
}

func registerAlice(t *testing.T, d *UserDirectory) model.User {
	t.Helper()
	second := "Ruiz"
	u, err := d.Register(context.Background(), RegisterInput{
		Email: "alice@example.com", Name: "Alice", LastName: "García", SecondLastName: &second, Password: "s3cretpass",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterStoresHashAndLowercasesNames(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	u := registerAlice(t, newDirectory(store, rec))

	assert.NotZero(t, u.ID)
	assert.True(t, u.Active)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "garcía", u.LastName)
	require.NotNil(t, u.SecondLastName)
	assert.Equal(t, "ruiz", *u.SecondLastName)
	assert.NotEqual(t, "s3cretpass", u.PasswordHash)
	assert.True(t, auth.VerifyPassword("s3cretpass", u.PasswordHash))
	assert.Equal(t, t0, u.CreatedAt)
	assert.Equal(t, []string{queue.KindUserRegistered}, rec.kinds())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	d := newDirectory(newMemStore(), nil)
	registerAlice(t, d)

	_, err := d.Register(context.Background(), RegisterInput{Email: "alice@example.com", Name: "a", LastName: "b", Password: "otherpass1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterEmailIsCaseSensitive(t *testing.T) {
	d := newDirectory(newMemStore(), nil)
	registerAlice(t, d)

	_, err := d.Register(context.Background(), RegisterInput{Email: "Alice@example.com", Name: "a", LastName: "b", Password: "otherpass1"})
	assert.NoError(t, err)
}

func TestRegisterStorageFailure(t *testing.T) {
	store := newMemStore()
	store.fail = errStorage
	_, err := newDirectory(store, nil).Register(context.Background(), RegisterInput{Email: "x@y.z", Name: "x", LastName: "y", Password: "12345678"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStorage)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestFindByEmailAndGet(t *testing.T) {
	d := newDirectory(newMemStore(), nil)
	u := registerAlice(t, d)

	got, err := d.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = d.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	store := newMemStore()
	d := newDirectory(store, nil)
	u := registerAlice(t, d)
	_, err := d.Register(context.Background(), RegisterInput{Email: "bob@example.com", Name: "Bob", LastName: "B", Password: "bobpass12"})
	require.NoError(t, err)

	later := t0.Add(time.Hour)
	d.WithClock(fixedClock(later))

	got, err := d.UpdateProfile(context.Background(), u.ID, model.Profile{Email: "alice2@example.com", Name: "ALICIA", LastName: "Gomez"})
	require.NoError(t, err)
	assert.Equal(t, "alice2@example.com", got.Email)
	assert.Equal(t, "alicia", got.Name)
	assert.Nil(t, got.SecondLastName)
	assert.Equal(t, later, got.UpdatedAt)

	_, err = d.UpdateProfile(context.Background(), u.ID, model.Profile{Email: "bob@example.com", Name: "a", LastName: "b"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = d.UpdateProfile(context.Background(), 404, model.Profile{Email: "z@z.z", Name: "a", LastName: "b"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	d := newDirectory(newMemStore(), nil)
	u := registerAlice(t, d)

	got, err := d.UpdatePassword(context.Background(), u.ID, "n3wpassword")
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword("n3wpassword", got.PasswordHash))
	assert.False(t, auth.VerifyPassword("s3cretpass", got.PasswordHash))
}

func TestDeactivate(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	d := newDirectory(store, rec)
	u := registerAlice(t, d)

	require.NoError(t, d.Deactivate(context.Background(), u.ID))
	got, err := d.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, []string{queue.KindUserRegistered, queue.KindUserDeactivated}, rec.kinds())

	assert.ErrorIs(t, d.Deactivate(context.Background(), 999), ErrNotFound)
}
