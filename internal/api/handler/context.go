package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pharmacy/backoffice/internal/api/middleware"
	"github.com/pharmacy/backoffice/internal/core/domain"
)

// ctxPrincipal returns the caller attached by the Auth middleware. Its
// absence means the route was registered without authentication, which is
// treated as an unauthenticated request rather than a server fault.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
