package ports

import (
	"context"
	"time"

	"github.com/identitystore/identity-service/internal/core/domain"
)

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	DOB       time.Time
}

// UpdateUserInput carries a full update. Password is mandatory and Roles
// replaces the current role set.
type UpdateUserInput struct {
	Password  string
	FirstName string
	LastName  string
	DOB       time.Time
	Roles     []string
}

// RoleView is the outward projection of a role.
type RoleView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserView is the outward projection of a user. It never carries the password hash.
type UserView struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	DOB       time.Time  `json:"dob"`
	Roles     []RoleView `json:"roles"`
}

// UserService defines use-case operations for user accounts.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*UserView, error)
	CreateUserWithRole(ctx context.Context, in CreateUserInput, roleName string) (*UserView, error)
	GetMyInfo(ctx context.Context, principal domain.Principal) (*UserView, error)
	UpdateUser(ctx context.Context, principal domain.Principal, id string, in UpdateUserInput) (*UserView, error)
	DeleteUser(ctx context.Context, principal domain.Principal, id string) error
	GetUsers(ctx context.Context, principal domain.Principal) ([]UserView, error)
	GetUser(ctx context.Context, id string) (*UserView, error)
	CountUsers(ctx context.Context) (int64, error)
}
