// Package router registers the HTTP routes on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/granada-sport/server/internal/handler"
	"github.com/granada-sport/server/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterUsers registers account and token routes.  Registration and
// login are open; everything under /user/me requires an active user.
// limit runs after authentication so user keyed buckets see the caller.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, users middleware.UserResolver, limit echo.MiddlewareFunc) {
	e.POST("/user", h.Register, limit)
	e.POST("/token", h.Token, limit)

	me := e.Group("/user/me", middleware.Authenticate(users), limit)
	me.GET("", h.Me)
	me.PUT("", h.UpdateMe)
	me.PUT("/password", h.UpdatePassword)
	me.DELETE("", h.DeleteMe)
}

// RegisterEvents registers the event catalog and participation routes.
// The public listing accepts anonymous callers and is served through
// listingCache.  limit is applied after authentication, as in
// RegisterUsers.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, users middleware.UserResolver, limit, listingCache echo.MiddlewareFunc) {
	e.GET("/event", h.List, middleware.OptionalAuthenticate(users), limit, listingCache)

	g := e.Group("/event", middleware.Authenticate(users), limit)
	g.POST("", h.Create)
	g.GET("/me", h.Mine)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/participate", h.Join)
	g.DELETE("/:id/participate", h.Leave)
	g.GET("/:id/participants", h.Participants)
}
