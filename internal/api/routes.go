package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pharmacy/backoffice/internal/api/handler"
	"github.com/pharmacy/backoffice/internal/api/middleware"
	"github.com/pharmacy/backoffice/internal/core/domain"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

// Access declares who may call a route. The zero value is invalid so a
// route cannot be registered without an explicit decision.
type Access struct {
	public bool
	roles  domain.RoleSet
}

// Public routes skip authentication entirely.
var Public = Access{public: true}

// Roles restricts a route to authenticated callers holding one of set.
func Roles(set domain.RoleSet) Access {
	return Access{roles: set}
}

func (a Access) IsPublic() bool { return a.public }

// Route is one entry of the dispatch table.
type Route struct {
	Method    string
	Path      string
	Access    Access
	Throttled bool
	Handler   echo.HandlerFunc
}

// Guard holds the middleware the table is enforced with.
type Guard struct {
	Auth     echo.MiddlewareFunc
	Throttle echo.MiddlewareFunc // nil disables throttling
	Audit    ports.AuditPublisher
}

// Routes is the back-office dispatch table. Every authenticated operation
// is listed here with its allow-set; handlers never check roles.
func Routes(auth *handler.AuthHandler, accounts *handler.AccountHandler) []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/api/auth/login", Access: Public, Throttled: true, Handler: auth.Login},
		{Method: http.MethodPost, Path: "/api/auth/register", Access: Public, Throttled: true, Handler: auth.Register},
		{Method: http.MethodGet, Path: "/api/auth/me", Access: Roles(domain.AnyRole), Handler: auth.Me},

		{Method: http.MethodGet, Path: "/api/profile", Access: Roles(domain.AnyRole), Handler: accounts.GetProfile},
		{Method: http.MethodPut, Path: "/api/profile", Access: Roles(domain.AnyRole), Handler: accounts.UpdateProfile},
		{Method: http.MethodPut, Path: "/api/profile/password", Access: Roles(domain.AnyRole), Handler: accounts.ChangePassword},
		{Method: http.MethodGet, Path: "/api/profile/:id", Access: Roles(domain.AdminOnly), Handler: accounts.GetByID},

		{Method: http.MethodGet, Path: "/api/accounts/stats", Access: Roles(domain.StaffRoles), Handler: accounts.RoleStats},
	}
}

// RegisterRoutes mounts every route with the middleware its Access demands.
func RegisterRoutes(e *echo.Echo, routes []Route, g Guard) error {
	for _, r := range routes {
		var mw []echo.MiddlewareFunc
		if r.Throttled && g.Throttle != nil {
			mw = append(mw, g.Throttle)
		}

		if !r.Access.IsPublic() {
			if len(r.Access.roles.Roles()) == 0 {
				return fmt.Errorf("route %s %s: no access declared", r.Method, r.Path)
			}
			if g.Auth == nil {
				return fmt.Errorf("route %s %s: protected route without auth middleware", r.Method, r.Path)
			}
			mw = append(mw, g.Auth, middleware.RBAC(r.Access.roles, g.Audit))
		}

		e.Add(r.Method, r.Path, r.Handler, mw...)
	}
	return nil
}
