package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
)

// SeedUser describes an account provisioned on an empty store.
type SeedUser struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	DOB       time.Time
	Role      string
}

// Bootstrap provisions default data: the predefined roles when no role
// exists, and the seed accounts when no user exists.
type Bootstrap struct {
	roles  ports.RoleService
	users  ports.UserService
	logger zerolog.Logger
}

func NewBootstrap(roles ports.RoleService, users ports.UserService, logger zerolog.Logger) *Bootstrap {
	return &Bootstrap{roles: roles, users: users, logger: logger}
}

// Run is safe to call on every start; it only writes into empty collections.
func (b *Bootstrap) Run(ctx context.Context, seeds []SeedUser) error {
	roleCount, err := b.roles.Count(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if roleCount == 0 {
		for _, r := range []struct{ name, description string }{
			{domain.RoleUser, "User Role"},
			{domain.RoleAdmin, "Admin Role"},
		} {
			if _, err := b.roles.Create(ctx, r.name, r.description); err != nil {
				return fmt.Errorf("bootstrap: seed role %s: %w", r.name, err)
			}
		}
		b.logger.Info().Msg("default roles seeded")
	}

	userCount, err := b.users.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if userCount > 0 || len(seeds) == 0 {
		return nil
	}

	for _, seed := range seeds {
		role := seed.Role
		if role == "" {
			role = domain.RoleUser
		}
		_, err := b.users.CreateUserWithRole(ctx, ports.CreateUserInput{
			Username:  seed.Username,
			Password:  seed.Password,
			FirstName: seed.FirstName,
			LastName:  seed.LastName,
			DOB:       seed.DOB,
		}, role)
		if err != nil {
			return fmt.Errorf("bootstrap: seed user %s: %w", seed.Username, err)
		}
	}
	b.logger.Info().Int("count", len(seeds)).Msg("seed users created")
	return nil
}
