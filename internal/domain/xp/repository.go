package xp

import (
	"context"
	"time"
)

// Repository is the append-only ledger store. There is no update or delete.
type Repository interface {
	// Append stores a new entry.
	Append(ctx context.Context, e *Entry) error

	// SumByUser returns the user's lifetime XP according to the ledger.
	SumByUser(ctx context.Context, userID string) (int, error)

	// SumByUserSince returns XP granted to the user at or after since.
	SumByUserSince(ctx context.Context, userID string, since time.Time) (int, error)

	// ListByUser returns the newest entries first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error)

	// CountActiveDays counts distinct UTC calendar days with at least one entry.
	CountActiveDays(ctx context.Context, userID string) (int, error)

	// CountActiveUsersBetween counts distinct users with entries in [from, to).
	CountActiveUsersBetween(ctx context.Context, from, to time.Time) (int, error)

	// SumBetween returns total XP granted platform-wide in [from, to).
	SumBetween(ctx context.Context, from, to time.Time) (int, error)
}
