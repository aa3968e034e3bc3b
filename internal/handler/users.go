package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/granada-sport/server/internal/auth"
	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/service"
)

// Accounts is the account lifecycle used by UserHandler.  It is satisfied
// by *service.UserDirectory.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, p model.Profile) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, plaintext string) (model.User, error)
	Deactivate(ctx context.Context, id uint64) error
}

// Sessions exchanges credentials for an access token.  It is satisfied by
// *service.Authenticator.
type Sessions interface {
	Login(ctx context.Context, email, password string) (auth.AccessToken, model.User, error)
}

// UserHandler serves /user and /token.
type UserHandler struct {
	Accounts Accounts
	Sessions Sessions
}

func NewUserHandler(accounts Accounts, sessions Sessions) *UserHandler {
	return &UserHandler{Accounts: accounts, Sessions: sessions}
}

// Register handles POST /user.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Accounts.Register(ctx, service.RegisterInput{
		Email:          req.Email,
		Name:           req.Name,
		LastName:       req.LastName,
		SecondLastName: req.SecondLastName,
		Password:       req.Password,
	})
	if err != nil {
		return respondError(c, err, "user not found")
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Me handles GET /user/me.
func (h *UserHandler) Me(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// UpdateMe handles PUT /user/me.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	var req profileReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	updated, err := h.Accounts.UpdateProfile(ctx, u.ID, model.Profile{
		Email:          req.Email,
		Name:           req.Name,
		LastName:       req.LastName,
		SecondLastName: req.SecondLastName,
	})
	if err != nil {
		return respondError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, toUserResp(updated))
}

// UpdatePassword handles PUT /user/me/password.
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	var req passwordReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	updated, err := h.Accounts.UpdatePassword(ctx, u.ID, req.Password)
	if err != nil {
		return respondError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, toUserResp(updated))
}

// DeleteMe handles DELETE /user/me.  The account is deactivated, not
// removed.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Accounts.Deactivate(ctx, u.ID); err != nil {
		return respondError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"detail": "user deleted"})
}

// Token handles POST /token.
func (h *UserHandler) Token(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	tok, _, err := h.Sessions.Login(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return respondError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		ExpiresAt:   tok.Exp,
	})
}
