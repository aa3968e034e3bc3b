package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.  *sql.DB satisfies
// it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health answers load balancer probes.  With a Pinger it also checks the
// database and reports 503 when it is unreachable.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database unavailable"})
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
