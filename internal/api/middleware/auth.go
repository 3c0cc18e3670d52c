package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// PrincipalKey is the echo context key holding the authenticated
// domain.Principal.
const PrincipalKey = "principal"

// PrincipalResolver turns an access token into the caller. Implemented by
// service.AuthService.CurrentIdentity.
type PrincipalResolver interface {
	CurrentIdentity(ctx context.Context, accessToken string) (domain.Principal, error)
}

// Auth validates the bearer access token and injects the principal into
// context. Refresh and reset tokens are rejected.
func Auth(resolver PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := resolver.CurrentIdentity(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			}

			c.Set(PrincipalKey, principal)
			return next(c)
		}
	}
}

// RequireAdmin lets through only callers holding the admin flag. It must be
// mounted after Auth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := c.Get(PrincipalKey).(domain.Principal)
			if !p.IsAdmin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": domain.ErrForbidden.Error()})
			}
			return next(c)
		}
	}
}
