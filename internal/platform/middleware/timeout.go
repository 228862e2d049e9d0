package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout sets a context deadline on each incoming request. When the
// deadline is exceeded before the handler completes, the request context is
// cancelled and a 504 is returned. Handlers that need more time can derive
// their own context.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					if !c.Response().Committed {
						return c.JSON(http.StatusGatewayTimeout, map[string]string{
							"error": "request processing exceeded the allowed time limit",
						})
					}
					return nil
				}
				return ctx.Err()
			}
		}
	}
}
