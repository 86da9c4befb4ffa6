package domain

import "errors"

// Error kinds. Every concrete domain error unwraps to exactly one of these.
var (
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("access forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Numeric codes surfaced to API clients.
const (
	CodeUncategorized   = 9999
	CodeInvalidKey      = 1001
	CodeUserExisted     = 1002
	CodeUsernameInvalid = 1003
	CodeInvalidPassword = 1004
	CodeUserNotExisted  = 1005
	CodeUnauthenticated = 1006
	CodeUnauthorized    = 1007
	CodeInvalidDOB      = 1008
	CodeInvalidID       = 1009
	CodeRoleExisted     = 1010
	CodeRoleNotExisted  = 1011
)

// Error is a classified domain failure carrying a client-facing code.
type Error struct {
	Code    int
	Message string
	Kind    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewValidationError builds a validation-kind error with the given code.
func NewValidationError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg, Kind: ErrValidation}
}

var (
	ErrUserExists      = &Error{Code: CodeUserExisted, Message: "user existed", Kind: ErrConflict}
	ErrUserNotFound    = &Error{Code: CodeUserNotExisted, Message: "user not existed", Kind: ErrNotFound}
	ErrRoleExists      = &Error{Code: CodeRoleExisted, Message: "role existed", Kind: ErrConflict}
	ErrRoleNotFound    = &Error{Code: CodeRoleNotExisted, Message: "role not existed", Kind: ErrNotFound}
	ErrAccessDenied    = &Error{Code: CodeUnauthorized, Message: "you do not have permission", Kind: ErrForbidden}
	ErrMissingIdentity = &Error{Code: CodeUnauthenticated, Message: "unauthenticated", Kind: ErrUnauthenticated}
	ErrInvalidID       = NewValidationError(CodeInvalidID, "invalid identifier")
)

// CodeOf returns the client-facing code for err, or CodeUncategorized.
func CodeOf(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUncategorized
}
