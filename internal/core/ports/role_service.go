package ports

import "context"

// RoleService defines use-case operations for roles.
type RoleService interface {
	Create(ctx context.Context, name, description string) (*RoleView, error)
	GetAll(ctx context.Context) ([]RoleView, error)
	Delete(ctx context.Context, name string) error
	Count(ctx context.Context) (int64, error)
}
