package ports

import (
	"context"

	"github.com/identitystore/identity-service/internal/core/domain"
)

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	// Create fails with domain.ErrRoleExists when the name is taken.
	Create(ctx context.Context, role *domain.Role) error
	FindAll(ctx context.Context) ([]domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	// FindAllByName returns the subset of names that exist. Unknown names are skipped.
	FindAllByName(ctx context.Context, names []string) ([]domain.Role, error)
	// Delete removes the role and detaches it from every user holding it.
	Delete(ctx context.Context, name string) error
	Count(ctx context.Context) (int64, error)
}
