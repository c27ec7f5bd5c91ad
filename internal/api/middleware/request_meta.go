package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

// RequestMeta copies the caller address into the request context so the
// services can attach it to audit entries.
func RequestMeta() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithRemoteIP(req.Context(), c.RealIP())))
			return next(c)
		}
	}
}
