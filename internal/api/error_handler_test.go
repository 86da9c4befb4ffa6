package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/identitystore/identity-service/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"conflict", domain.ErrUserExists, http.StatusConflict, domain.CodeUserExisted},
		{"not found", domain.ErrRoleNotFound, http.StatusNotFound, domain.CodeRoleNotExisted},
		{"forbidden", domain.ErrAccessDenied, http.StatusForbidden, domain.CodeUnauthorized},
		{"validation", domain.ErrInvalidID, http.StatusBadRequest, domain.CodeInvalidID},
		{"unauthenticated", domain.ErrMissingIdentity, http.StatusUnauthorized, domain.CodeUnauthenticated},
		{"wrapped", fmt.Errorf("get user: %w", domain.ErrUserNotFound), http.StatusNotFound, domain.CodeUserNotExisted},
		{"echo", echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), http.StatusMethodNotAllowed, domain.CodeUncategorized},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, domain.CodeUncategorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			NewHTTPErrorHandler(zerolog.Nop())(tc.err, c)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, body.Code)
			}
			if tc.status == http.StatusInternalServerError && body.Error != "internal server error" {
				t.Fatalf("internal error leaked: %q", body.Error)
			}
		})
	}
}
