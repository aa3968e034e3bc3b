package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/granada-sport/server/internal/auth"
	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/service"
)

// Context keys set by the authentication middlewares.
const (
	ctxUser   = "user"
	ctxUserID = "user_id"
)

// UserResolver maps a bearer token to an active user.  It is satisfied by
// *service.Authenticator.
type UserResolver interface {
	CurrentActiveUser(ctx context.Context, token string) (model.User, error)
}

// Authenticate rejects requests without a valid bearer token for an active
// user.  On success the user is available through CurrentUser.
func Authenticate(users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := auth.TokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return unauthorized(c, "missing bearer token")
			}
			return resolve(c, users, raw, next)
		}
	}
}

// OptionalAuthenticate lets anonymous requests through but still rejects a
// bearer token that does not resolve.
func OptionalAuthenticate(users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.TrimSpace(header) == "" {
				return next(c)
			}
			raw, err := auth.TokenFromHeader(header)
			if err != nil {
				return unauthorized(c, "invalid authorization header")
			}
			return resolve(c, users, raw, next)
		}
	}
}

func resolve(c echo.Context, users UserResolver, raw string, next echo.HandlerFunc) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := users.CurrentActiveUser(ctx, raw)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnauthorized):
		return unauthorized(c, "could not validate credentials")
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	c.Set(ctxUser, u)
	c.Set(ctxUserID, u.ID)
	return next(c)
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}

// CurrentUserID returns the id of the authenticated user.
func CurrentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}
