package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

// RequestTimeout sets a deadline on each request context, which outbound
// DHIS2 calls inherit.
// If the handler returns without writing a response after the deadline, a
// 504 OperationOutcome is written.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if c.Response().Committed {
				return err
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && (err == nil || errors.Is(err, context.DeadlineExceeded)) {
				return c.JSON(http.StatusGatewayTimeout, fhir.TimeoutOutcome())
			}
			return err
		}
	}
}
