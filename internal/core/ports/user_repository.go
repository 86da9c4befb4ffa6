package ports

import (
	"context"

	"github.com/identitystore/identity-service/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
//
// Implementations must enforce username uniqueness atomically (unique index)
// and report a violation as domain.ErrUserExists.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// Update replaces the mutable fields and the full role set of an existing user.
	Update(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	// Delete removes the user and its role associations; the roles themselves stay.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
