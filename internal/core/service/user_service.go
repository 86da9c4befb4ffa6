package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
	"github.com/identitystore/identity-service/internal/core/validation"
	"github.com/identitystore/identity-service/internal/pkg/metrics"
)

// UserService owns the account lifecycle: uniqueness, password hashing,
// role linkage and the authorization policy.
type UserService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	hasher ports.PasswordHasher
	cache  ports.UserCache
	authz  Authorizer
	logger zerolog.Logger
	now    func() time.Time
}

// NewUserService wires the service. cache may be nil, in which case every
// read goes to the store.
func NewUserService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	hasher ports.PasswordHasher,
	cache ports.UserCache,
	logger zerolog.Logger,
) *UserService {
	if cache == nil {
		cache = nopCache{}
	}
	return &UserService{
		users:  users,
		roles:  roles,
		hasher: hasher,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// CreateUser registers an account with the default USER role. The role is
// omitted without error when it does not exist.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*ports.UserView, error) {
	return s.create(ctx, in, domain.RoleUser)
}

// CreateUserWithRole registers an account holding roleName. An unknown
// roleName is omitted without error.
func (s *UserService) CreateUserWithRole(ctx context.Context, in ports.CreateUserInput, roleName string) (*ports.UserView, error) {
	return s.create(ctx, in, roleName)
}

func (s *UserService) create(ctx context.Context, in ports.CreateUserInput, roleName string) (*ports.UserView, error) {
	if err := validation.CheckUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validation.CheckPassword(in.Password); err != nil {
		return nil, err
	}
	if err := validation.CheckDateOfBirth(in.DOB, s.now()); err != nil {
		return nil, err
	}

	// Fast path only; the store's unique index is what guarantees uniqueness
	// under concurrent creation.
	exists, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if exists {
		return nil, domain.ErrUserExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	roles, err := s.roles.FindAllByName(ctx, []string{roleName})
	if err != nil {
		return nil, fmt.Errorf("create user: resolve role: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DOB:          in.DOB,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		s.logger.Error().Err(err).Str("username", in.Username).Msg("failed to create user")
		return nil, fmt.Errorf("create user: %w", err)
	}

	assigned := "none"
	if len(user.Roles) > 0 {
		assigned = user.Roles[0].Name
	}
	metrics.UsersCreatedTotal.WithLabelValues(assigned).Inc()

	view := toUserView(user)
	s.cachePut(ctx, view)

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Str("role", assigned).Msg("user created")
	return view, nil
}

// GetMyInfo returns the account of the calling principal.
func (s *UserService) GetMyInfo(ctx context.Context, principal domain.Principal) (*ports.UserView, error) {
	if principal.Name == "" {
		return nil, domain.ErrUserNotFound
	}

	if id, ok := s.cachedID(ctx, principal.Name); ok {
		if view, hit := s.cacheGet(ctx, id); hit && view.Username == principal.Name {
			return view, nil
		}
	}

	user, err := s.users.FindByUsername(ctx, principal.Name)
	if err != nil {
		return nil, s.lookupErr("get my info", err)
	}

	view := toUserView(user)
	s.cachePut(ctx, view)
	return view, nil
}

// UpdateUser applies a full update to the account identified by id. The
// self-only policy is evaluated before anything is written: a principal may
// only update its own account unless it is an administrator. id and username
// never change; the role set is replaced, not merged.
func (s *UserService) UpdateUser(ctx context.Context, principal domain.Principal, id string, in ports.UpdateUserInput) (*ports.UserView, error) {
	if err := validation.CheckPassword(in.Password); err != nil {
		return nil, err
	}
	if err := validation.CheckDateOfBirth(in.DOB, s.now()); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupErr("update user", err)
	}

	if err := s.authz.RequireSelf(principal, user.Username); err != nil {
		s.logger.Warn().Str("user_id", id).Str("principal", principal.Name).Msg("update denied")
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("update user: hash password: %w", err)
	}

	roles, err := s.roles.FindAllByName(ctx, in.Roles)
	if err != nil {
		return nil, fmt.Errorf("update user: resolve roles: %w", err)
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.DOB = in.DOB
	user.PasswordHash = hash
	user.Roles = roles
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", id).Msg("failed to update user")
		return nil, fmt.Errorf("update user: %w", err)
	}

	view := toUserView(user)
	s.cachePut(ctx, view)

	s.logger.Info().Str("user_id", id).Strs("roles", user.RoleNames()).Msg("user updated")
	return view, nil
}

// DeleteUser permanently removes an account. Administrators only.
func (s *UserService) DeleteUser(ctx context.Context, principal domain.Principal, id string) error {
	if err := s.authz.RequireAdmin(principal); err != nil {
		s.logger.Warn().Str("user_id", id).Str("principal", principal.Name).Msg("delete denied")
		return err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return s.lookupErr("delete user", err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	metrics.UsersDeletedTotal.Inc()

	if err := s.cache.Remove(ctx, id, user.Username); err != nil {
		s.logger.Warn().Err(err).Str("user_id", id).Msg("failed to evict cached user")
	}

	s.logger.Info().Str("user_id", id).Str("username", user.Username).Str("principal", principal.Name).Msg("user deleted")
	return nil
}

// GetUsers lists every account. Administrators only.
func (s *UserService) GetUsers(ctx context.Context, principal domain.Principal) ([]ports.UserView, error) {
	if err := s.authz.RequireAdmin(principal); err != nil {
		return nil, err
	}

	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]ports.UserView, len(users))
	for i, u := range users {
		out[i] = *toUserView(u)
	}
	return out, nil
}

// GetUser returns any account by id. There is no ownership check.
func (s *UserService) GetUser(ctx context.Context, id string) (*ports.UserView, error) {
	if view, ok := s.cacheGet(ctx, id); ok {
		return view, nil
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupErr("get user", err)
	}

	view := toUserView(user)
	s.cachePut(ctx, view)
	return view, nil
}

func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserService) lookupErr(op string, err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- cache helpers: failures are logged and never fail the operation ---

func (s *UserService) cacheGet(ctx context.Context, id string) (*ports.UserView, bool) {
	view, ok, err := s.cache.Get(ctx, id)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("user_id", id).Msg("cache lookup failed, reading store")
		return nil, false
	case !ok:
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return view, true
}

func (s *UserService) cachedID(ctx context.Context, username string) (string, bool) {
	id, ok, err := s.cache.IDForUsername(ctx, username)
	if err != nil {
		s.logger.Warn().Err(err).Str("username", username).Msg("cache username lookup failed")
		return "", false
	}
	return id, ok
}

func (s *UserService) cachePut(ctx context.Context, view *ports.UserView) {
	if err := s.cache.Put(ctx, view); err != nil {
		s.logger.Warn().Err(err).Str("user_id", view.ID).Msg("failed to cache user")
	}
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*ports.UserView, bool, error) { return nil, false, nil }

func (nopCache) IDForUsername(context.Context, string) (string, bool, error) { return "", false, nil }

func (nopCache) Put(context.Context, *ports.UserView) error { return nil }

func (nopCache) Remove(context.Context, string, string) error { return nil }
