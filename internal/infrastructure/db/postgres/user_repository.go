package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/identitystore/identity-service/internal/core/domain"
)

const userColumns = `id, username, password_hash, first_name, last_name, dob, created_at, updated_at`

// UserRepository stores users in the users table and their role links in
// user_roles. Writes touching both run in one transaction.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			u.ID, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.DOB, u.CreatedAt, u.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrUserExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return linkRoles(ctx, tx, u)
	})
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users
			 SET password_hash = $2, first_name = $3, last_name = $4, dob = $5, updated_at = $6
			 WHERE id = $1`,
			u.ID, u.PasswordHash, u.FirstName, u.LastName, u.DOB, u.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, u.ID); err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		return linkRoles(ctx, tx, u)
	})
}

// linkRoles links u to each of its roles that still exists and then reloads
// u.Roles from what was linked. A role deleted after the caller resolved it
// is omitted, not reported.
func linkRoles(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	for _, role := range u.Roles {
		_, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_name)
			 SELECT $1, name FROM roles WHERE name = $2
			 ON CONFLICT DO NOTHING`,
			u.ID, role.Name,
		)
		if err != nil {
			return fmt.Errorf("link role %s: %w", role.Name, err)
		}
	}
	if len(u.Roles) == 0 {
		return nil
	}
	linked, err := loadRoles(ctx, tx, []string{u.ID})
	if err != nil {
		return err
	}
	u.Roles = linked[u.ID]
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.DOB, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	normalizeTimes(&u)

	roles, err := loadRoles(ctx, r.pool, []string{u.ID})
	if err != nil {
		return nil, err
	}
	u.Roles = roles[u.ID]
	return &u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	var (
		out []*domain.User
		ids []string
	)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.DOB, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		normalizeTimes(&u)
		out = append(out, &u)
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	roles, err := loadRoles(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range out {
		u.Roles = roles[u.ID]
	}
	return out, nil
}

// Delete removes the user; user_roles rows go with it through the cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// loadRoles returns the roles of each user id, ordered by name.
func loadRoles(ctx context.Context, q querier, ids []string) (map[string][]domain.Role, error) {
	rows, err := q.Query(ctx,
		`SELECT ur.user_id, r.name, r.description
		 FROM user_roles ur
		 JOIN roles r ON r.name = ur.role_name
		 WHERE ur.user_id = ANY($1)
		 ORDER BY ur.user_id, r.name`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Role, len(ids))
	for rows.Next() {
		var (
			userID string
			role   domain.Role
		)
		if err := rows.Scan(&userID, &role.Name, &role.Description); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		out[userID] = append(out[userID], role)
	}
	return out, rows.Err()
}

func normalizeTimes(u *domain.User) {
	u.DOB = u.DOB.UTC()
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
}
