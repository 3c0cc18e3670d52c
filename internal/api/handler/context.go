package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/selectexposure/authcore/internal/api/middleware"
	"github.com/selectexposure/authcore/internal/core/domain"
)

// ctxPrincipal extracts the caller injected by the Auth middleware. A missing
// or empty principal means the route was mounted without the middleware.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get(middleware.PrincipalKey).(domain.Principal)
	if !ok || p.IdentityID == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
