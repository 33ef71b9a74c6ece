package user

import (
	"context"
	"time"
)

// Repository defines storage operations for users.
type Repository interface {
	// Create stores a new user. Returns ErrUserAlreadyExists on a duplicate email.
	Create(ctx context.Context, u *User) error

	// GetByID returns ErrUserNotFound when missing.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetForUpdate reads the user and locks the row for the rest of the
	// enclosing transaction.
	GetForUpdate(ctx context.Context, id string) (*User, error)

	// UpdateProgression writes xp and level together.
	UpdateProgression(ctx context.Context, id string, xp, level int) error

	// UpdateRole changes the user's role.
	UpdateRole(ctx context.Context, id string, role Role) error

	// ListIDsByRoles returns ids of users holding any of the roles.
	ListIDsByRoles(ctx context.Context, roles ...Role) ([]string, error)

	// ListIDsWithLevelAtLeast returns ids of users whose level >= level.
	ListIDsWithLevelAtLeast(ctx context.Context, level int) ([]string, error)

	// ListIDs pages through every user id ordered by creation.
	ListIDs(ctx context.Context, limit, offset int) ([]string, error)

	// Count returns the number of users.
	Count(ctx context.Context) (int, error)

	// CountCreatedBetween counts users created in [from, to).
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}
