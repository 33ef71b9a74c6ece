package progress

import (
	"context"
	"time"
)

// CourseProgressRepository stores (user, course) rows. The pair is unique.
type CourseProgressRepository interface {
	// GetForUpdate returns the row locked for the enclosing transaction,
	// or ErrProgressNotFound.
	GetForUpdate(ctx context.Context, userID, courseID string) (*CourseProgress, error)

	// Get returns ErrProgressNotFound when missing.
	Get(ctx context.Context, userID, courseID string) (*CourseProgress, error)

	// Upsert inserts or replaces the row keyed by (user, course).
	Upsert(ctx context.Context, p *CourseProgress) error

	// ListByUser returns every row of the user.
	ListByUser(ctx context.Context, userID string) ([]*CourseProgress, error)
}

// GlobalProgressRepository stores one row per user.
type GlobalProgressRepository interface {
	// Get returns ErrProgressNotFound when missing.
	Get(ctx context.Context, userID string) (*GlobalProgress, error)
	Upsert(ctx context.Context, g *GlobalProgress) error
}

// StatisticRepository stores one row per user.
type StatisticRepository interface {
	// Get returns ErrProgressNotFound when missing.
	Get(ctx context.Context, userID string) (*UserStatistic, error)
	Upsert(ctx context.Context, s *UserStatistic) error
}

// SnapshotRepository stores one row per day.
type SnapshotRepository interface {
	Upsert(ctx context.Context, s *PlatformSnapshot) error
	Get(ctx context.Context, date time.Time) (*PlatformSnapshot, error)
}
