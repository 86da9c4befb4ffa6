package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/identitystore/identity-service/internal/api/middleware"
	"github.com/identitystore/identity-service/internal/core/domain"
)

// ctxPrincipal returns the caller injected by the Auth middleware. A missing
// principal means the route was registered without Auth; reject with 401.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.Principal{}, domain.ErrMissingIdentity
	}
	return p, nil
}

// bindAndValidate binds path, query and body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError(domain.CodeInvalidKey, "invalid request body")
	}
	return c.Validate(req)
}
