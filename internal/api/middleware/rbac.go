package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pharmacy/backoffice/internal/api/metrics"
	"github.com/pharmacy/backoffice/internal/core/domain"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

var timeNow = time.Now

// RBAC enforces an operation's role allow-set. It must run after Auth.
func RBAC(allowed domain.RoleSet, audit ports.AuditPublisher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims").SetInternal(domain.ErrMissingCredential)
			}
			if !allowed.Allows(p.Role) {
				metrics.AuthorizationDenialsTotal.WithLabelValues(string(p.Role)).Inc()
				if audit != nil {
					audit.Publish(domain.AuthEvent{
						Kind:       domain.EventAccessDenied,
						Username:   p.Username,
						Outcome:    domain.OutcomeFailure,
						Reason:     c.Request().Method + " " + c.Path(),
						RemoteIP:   c.RealIP(),
						OccurredAt: timeNow().UTC(),
					})
				}
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden").SetInternal(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
