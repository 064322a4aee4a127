package middleware

import (
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/recipient"
)

// Policy groups. Roles inherit: admin > dispatcher > authenticated.
const (
	GroupAuthenticated = "authenticated"
	GroupDispatcher    = "dispatcher"
	GroupAdmin         = "admin-group"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

var groupings = [][]string{
	{string(recipient.RoleStudent), GroupAuthenticated},
	{string(recipient.RoleStaff), GroupDispatcher},
	{string(recipient.RoleFaculty), GroupDispatcher},
	{string(recipient.RoleAdmin), GroupAdmin},
	{GroupAdmin, GroupDispatcher},
	{GroupDispatcher, GroupAuthenticated},
}

var policies = [][]string{
	{GroupAuthenticated, "/api/notifications/my", http.MethodGet},
	{GroupAuthenticated, "/api/notifications/filters", http.MethodGet},
	{GroupAuthenticated, "/api/notifications/:id/read", http.MethodPatch},
	{GroupAuthenticated, "/api/notifications/:id", http.MethodDelete},

	{GroupDispatcher, "/api/notifications/send", http.MethodPost},
	{GroupDispatcher, "/api/notifications/bulk-send", http.MethodPost},

	{GroupAdmin, "/api/notifications/user/:userId", http.MethodGet},
	{GroupAdmin, "/api/notifications/all", http.MethodGet},
	{GroupAdmin, "/api/notifications/stats", http.MethodGet},
	{GroupAdmin, "/api/audit-logs", http.MethodGet},
}

// NewEnforcer builds the route-level RBAC enforcer. The policy is fixed at
// startup and never mutated afterwards.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, fmt.Errorf("add grouping %v: %w", g, err)
		}
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", p, err)
		}
	}
	return enforcer, nil
}

// CasbinMiddleware checks the caller's role against the matched route pattern.
// It must run after JWTMiddleware.
func CasbinMiddleware(enforcer *casbin.Enforcer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := auth.IdentityFrom(c)
			if !ok {
				return apperr.ErrUnauthenticated
			}

			obj, act := c.Path(), c.Request().Method
			allowed, err := enforcer.Enforce(string(identity.Role), obj, act)
			if err != nil {
				return fmt.Errorf("enforce rbac: %w", err)
			}
			if !allowed && notFoundRoute(c.Echo(), obj) {
				return next(c)
			}
			if !allowed {
				logger.Debug("rbac denied",
					zap.String("role", string(identity.Role)),
					zap.String("path", obj),
					zap.String("method", act),
				)
				return fmt.Errorf("%w: role %s may not %s %s", apperr.ErrForbidden, identity.Role, act, obj)
			}
			return next(c)
		}
	}
}

// notFoundRoute reports whether path is a catch-all registered with
// RouteNotFound, such as the one echo adds for every group with middleware.
// Those routes only ever answer 404.
func notFoundRoute(e *echo.Echo, path string) bool {
	for _, r := range e.Routes() {
		if r.Method == echo.RouteNotFound && r.Path == path {
			return true
		}
	}
	return false
}
