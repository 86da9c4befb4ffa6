package handler

import (
	"time"

	"github.com/identitystore/identity-service/internal/core/ports"
)

// dateLayout is the wire format for dates of birth.
const dateLayout = "2006-01-02"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// --- Request types ---

type createUserRequest struct {
	Username  string `json:"username"   validate:"max=255"`
	Password  string `json:"password"   validate:"max=72"`
	FirstName string `json:"first_name" validate:"max=255"`
	LastName  string `json:"last_name"  validate:"max=255"`
	DOB       string `json:"dob"        validate:"required,datetime=2006-01-02"`
}

type updateUserRequest struct {
	ID        string   `param:"id"       json:"-"          validate:"identifier"`
	Password  string   `json:"password"                    validate:"max=72"`
	FirstName string   `json:"first_name"                  validate:"max=255"`
	LastName  string   `json:"last_name"                   validate:"max=255"`
	DOB       string   `json:"dob"                         validate:"required,datetime=2006-01-02"`
	Roles     []string `json:"roles"`
}

type userIDParam struct {
	ID string `param:"id" validate:"identifier"`
}

type createRoleRequest struct {
	Name        string `json:"name"        validate:"required,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// --- Response types ---

type roleResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type userResponse struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	DOB       string         `json:"dob"`
	Roles     []roleResponse `json:"roles"`
}

type usersResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
}

type rolesResponse struct {
	Roles []roleResponse `json:"roles"`
}

func toRoleResponses(in []ports.RoleView) []roleResponse {
	out := make([]roleResponse, len(in))
	for i, r := range in {
		out[i] = roleResponse(r)
	}
	return out
}

func toUserResponse(v *ports.UserView) userResponse {
	return userResponse{
		ID:        v.ID,
		Username:  v.Username,
		FirstName: v.FirstName,
		LastName:  v.LastName,
		DOB:       v.DOB.Format(dateLayout),
		Roles:     toRoleResponses(v.Roles),
	}
}

// parseDOB reads a date validated by the "datetime" rule.
func parseDOB(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
