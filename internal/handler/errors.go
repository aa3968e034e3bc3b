package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/granada-sport/server/internal/middleware"
	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// respondError maps service errors to status codes.  Anything unexpected is
// logged with the request id and answered with a generic 500.
func respondError(c echo.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Incorrect user or password"})
	case errors.Is(err, service.ErrUnauthorized):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
	default:
		zerolog.Ctx(c.Request().Context()).Error().Err(err).
			Str("method", c.Request().Method).Str("path", c.Path()).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// bindValid binds the request into dst and runs the registered validator.
// The returned error text is safe to send to the client.
func bindValid(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return errors.New("invalid request body")
	}
	if t, ok := dst.(interface{ trim() }); ok {
		t.trim()
	}
	if err := c.Validate(dst); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

// currentUser returns the user stored by middleware.Authenticate.
func currentUser(c echo.Context) (model.User, bool) {
	return middleware.CurrentUser(c)
}

func unauthenticated(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
}

func eventID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// page reads skip and limit query parameters.
func page(c echo.Context) (service.Page, error) {
	var p service.Page
	err := echo.QueryParamsBinder(c).
		Int("skip", &p.Skip).
		Int("limit", &p.Limit).
		BindError()
	return p, err
}
