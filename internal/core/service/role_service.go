package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
)

// RoleService implements CRUD over named roles.
type RoleService struct {
	repo   ports.RoleRepository
	logger zerolog.Logger
}

func NewRoleService(repo ports.RoleRepository, logger zerolog.Logger) *RoleService {
	return &RoleService{repo: repo, logger: logger}
}

// Create stores a new role. The store's unique key on name is what reports
// a duplicate.
func (s *RoleService) Create(ctx context.Context, name, description string) (*ports.RoleView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError(domain.CodeInvalidKey, "role name is required")
	}

	role := &domain.Role{Name: name, Description: description}
	if err := s.repo.Create(ctx, role); err != nil {
		if errors.Is(err, domain.ErrRoleExists) {
			return nil, domain.ErrRoleExists
		}
		s.logger.Error().Err(err).Str("role", name).Msg("failed to create role")
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.Info().Str("role", name).Msg("role created")
	view := toRoleView(*role)
	return &view, nil
}

func (s *RoleService) GetAll(ctx context.Context) ([]ports.RoleView, error) {
	roles, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]ports.RoleView, len(roles))
	for i, r := range roles {
		out[i] = toRoleView(r)
	}
	return out, nil
}

// Delete removes a role. It does not inspect which users hold the role; the
// repository detaches it from them.
func (s *RoleService) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return domain.ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}
	s.logger.Info().Str("role", name).Msg("role deleted")
	return nil
}

func (s *RoleService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count roles: %w", err)
	}
	return n, nil
}
