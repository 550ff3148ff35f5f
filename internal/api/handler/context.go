package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/geofence-system/internal/api/middleware"
)

// authorizeNamespace checks a namespace taken from a query or body, where
// no route-level middleware can see it.
func authorizeNamespace(c echo.Context, target string) error {
	return middleware.AuthorizeNamespace(c, target)
}
