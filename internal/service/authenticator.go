package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/granada-sport/server/internal/auth"
	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/repository"
)

// UserLookup is the subset of UserStore needed to authenticate.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Authenticator turns credentials into tokens and tokens back into users.
// The token subject is the decimal user id, which never changes or gets
// reused, unlike the email.
type Authenticator struct {
	users  UserLookup
	tokens *auth.TokenManager
	logger zerolog.Logger
}

func NewAuthenticator(users UserLookup, tokens *auth.TokenManager, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		users:  users,
		tokens: tokens,
		logger: logger.With().Str("component", "authenticator").Logger(),
	}
}

// AuthenticateCredentials returns the active user matching email and
// password.  Unknown email, inactive user and wrong password are
// indistinguishable to the caller.
func (a *Authenticator) AuthenticateCredentials(ctx context.Context, email, password string) (model.User, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		a.logger.Error().Err(err).Msg("lookup user failed")
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	if !u.Active || !auth.VerifyPassword(password, u.PasswordHash) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues an access token for the user.
func (a *Authenticator) Login(ctx context.Context, email, password string) (auth.AccessToken, model.User, error) {
	u, err := a.AuthenticateCredentials(ctx, email, password)
	if err != nil {
		return auth.AccessToken{}, model.User{}, err
	}
	tok, err := a.tokens.Issue(strconv.FormatUint(u.ID, 10))
	if err != nil {
		a.logger.Error().Err(err).Msg("issue token failed")
		return auth.AccessToken{}, model.User{}, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

// ResolveCurrentUser maps a bearer token to its user, active or not.
func (a *Authenticator) ResolveCurrentUser(ctx context.Context, token string) (model.User, error) {
	sub, err := a.tokens.Resolve(token)
	if err != nil {
		return model.User{}, ErrUnauthorized
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return model.User{}, ErrUnauthorized
	}
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUnauthorized
		}
		a.logger.Error().Err(err).Msg("lookup user failed")
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// RequireActive rejects deactivated users with ErrForbidden.
func RequireActive(u model.User) (model.User, error) {
	if !u.Active {
		return model.User{}, ErrForbidden
	}
	return u, nil
}

// CurrentActiveUser combines ResolveCurrentUser and RequireActive.
func (a *Authenticator) CurrentActiveUser(ctx context.Context, token string) (model.User, error) {
	u, err := a.ResolveCurrentUser(ctx, token)
	if err != nil {
		return model.User{}, err
	}
	return RequireActive(u)
}
