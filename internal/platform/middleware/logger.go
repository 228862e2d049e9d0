package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger emits one structured line per request. Only routing metadata is
// logged: request bodies and query strings carry questionnaire answers and
// patient references, so they never reach the log.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			// Health probes poll every few seconds; logging them drowns out
			// real traffic.
			if err == nil && strings.HasPrefix(req.URL.Path, "/health") {
				return nil
			}

			status := c.Response().Status
			evt := logger.Info()
			switch {
			case err != nil || status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn()
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
