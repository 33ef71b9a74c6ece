package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, email, first_name, last_name, role, xp, level, created_at, updated_at`

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.conn.q(ctx).Exec(ctx, query,
		u.ID, u.Email, u.FirstName, u.LastName, string(u.Role), u.XP, u.Level, u.CreatedAt, u.UpdatedAt,
	)
	return translate(err, nil, shared.ErrUserAlreadyExists, "create user")
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := r.conn.q(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetForUpdate locks the user row until the enclosing transaction ends.
func (r *UserRepository) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	row := r.conn.q(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

// UpdateProgression writes xp and level in one statement.
func (r *UserRepository) UpdateProgression(ctx context.Context, id string, xp, level int) error {
	tag, err := r.conn.q(ctx).Exec(ctx,
		`UPDATE users SET xp = $2, level = $3, updated_at = NOW() WHERE id = $1`, id, xp, level)
	if err != nil {
		return fmt.Errorf("failed to update progression: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// UpdateRole changes the user's role.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role user.Role) error {
	tag, err := r.conn.q(ctx).Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ListIDsByRoles returns ids of users holding any of roles.
func (r *UserRepository) ListIDsByRoles(ctx context.Context, roles ...user.Role) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return r.ids(ctx, `SELECT id::text FROM users WHERE role = ANY($1) ORDER BY created_at`, names)
}

// ListIDsWithLevelAtLeast returns ids of users whose level >= level.
func (r *UserRepository) ListIDsWithLevelAtLeast(ctx context.Context, level int) ([]string, error) {
	return r.ids(ctx, `SELECT id::text FROM users WHERE level >= $1 ORDER BY created_at`, level)
}

// ListIDs pages through users ordered by creation.
func (r *UserRepository) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return r.ids(ctx, `SELECT id::text FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountCreatedBetween counts users created in [from, to).
func (r *UserRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.conn.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count new users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) ids(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.conn.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan user ids: %w", err)
	}
	return ids, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &u.XP, &u.Level, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err, shared.ErrUserNotFound, nil, "scan user")
	}
	u.Role = user.Role(role)
	return &u, nil
}

var _ user.Repository = (*UserRepository)(nil)
