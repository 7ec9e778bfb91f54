package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carewell/hms/internal/platform/auth"
)

// Logger emits one structured line per request. The resolved actor id is
// included when session middleware ran before this one.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			method := c.Request().Method
			path := c.Request().URL.Path
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			// Session middleware runs later in the chain, so the actor has to
			// be read from the request as it stands after the handler.
			actorID := ""
			if actor := auth.ActorFromContext(c.Request().Context()); actor != nil {
				actorID = actor.ID
			}

			evt.
				Str("request_id", rid).
				Str("method", method).
				Str("path", path).
				Str("actor_id", actorID).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
