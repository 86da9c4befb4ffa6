package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/identitystore/identity-service/internal/core/domain"
)

// PrincipalKey is the echo context key holding the authenticated domain.Principal.
const PrincipalKey = "principal"

func unauthenticated(msg string) error {
	return &domain.Error{Code: domain.CodeUnauthenticated, Message: msg, Kind: domain.ErrUnauthenticated}
}

// Auth validates an HS256 bearer token and stores the caller as a
// domain.Principal. The subject claim is the principal name; the
// space-separated scope claim lists its roles.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthenticated("missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return unauthenticated("invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tkn.Valid {
				return unauthenticated("invalid token")
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				return unauthenticated("token missing subject")
			}

			scope, _ := claims["scope"].(string)
			c.Set(PrincipalKey, domain.Principal{Name: subject, Roles: strings.Fields(scope)})

			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by Auth.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(domain.Principal)
	return p, ok && p.Name != ""
}
