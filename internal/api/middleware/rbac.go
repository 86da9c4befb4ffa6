package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/pkg/metrics"
)

// RBAC admits the request when the principal holds at least one of
// allowedRoles. It must run after Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return domain.ErrMissingIdentity
			}
			for _, r := range allowedRoles {
				if p.HasRole(r) {
					return next(c)
				}
			}
			metrics.AuthorizationDenialsTotal.WithLabelValues("route").Inc()
			return domain.ErrAccessDenied
		}
	}
}
