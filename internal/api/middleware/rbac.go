package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// RBAC enforces role-based access control on the role set by Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// NamespaceParam scopes a route to the namespace named by the path parameter
// param: admins pass, clients only reach their own namespace.
func NamespaceParam(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := AuthorizeNamespace(c, c.Param(param)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// Claims returns the role and namespace claims set by Auth. A missing role
// means Auth did not run; a client token without a namespace cannot be
// scoped. Both are rejected with 401.
func Claims(c echo.Context) (role, namespace string, err error) {
	role, _ = c.Get(CtxRole).(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	namespace, _ = c.Get(CtxNamespace).(string)
	if role == domain.RoleClient && namespace == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing namespace")
	}
	return role, namespace, nil
}

// AuthorizeNamespace returns domain.ErrForbidden when the caller may not act
// on target.
func AuthorizeNamespace(c echo.Context, target string) error {
	role, namespace, err := Claims(c)
	if err != nil {
		return err
	}
	if !domain.CanAccessNamespace(role, namespace, target) {
		return fmt.Errorf("namespace %q: %w", target, domain.ErrForbidden)
	}
	return nil
}
