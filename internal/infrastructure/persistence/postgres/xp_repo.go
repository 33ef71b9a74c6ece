package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
)

// XPRepository implements xp.Repository. The table is append-only.
type XPRepository struct {
	conn *Connection
}

// NewXPRepository creates a new XPRepository.
func NewXPRepository(conn *Connection) *XPRepository {
	return &XPRepository{conn: conn}
}

// Append inserts one ledger entry.
func (r *XPRepository) Append(ctx context.Context, e *xp.Entry) error {
	query := `
		INSERT INTO xp_ledger (id, user_id, amount, source, related_quiz_id, related_course_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.conn.q(ctx).Exec(ctx, query,
		e.ID, e.UserID, e.Amount, string(e.Source), e.QuizID, e.CourseID, e.Reason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append xp entry: %w", err)
	}
	return nil
}

// SumByUser returns the user's lifetime XP.
func (r *XPRepository) SumByUser(ctx context.Context, userID string) (int, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = $1`, userID)
}

// SumByUserSince returns XP granted at or after since.
func (r *XPRepository) SumByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = $1 AND created_at >= $2`, userID, since)
}

// SumBetween returns platform-wide XP granted in [from, to).
func (r *XPRepository) SumBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE created_at >= $1 AND created_at < $2`, from, to)
}

// CountActiveDays counts distinct UTC days with at least one entry.
func (r *XPRepository) CountActiveDays(ctx context.Context, userID string) (int, error) {
	return r.sum(ctx,
		`SELECT COUNT(DISTINCT (created_at AT TIME ZONE 'UTC')::date) FROM xp_ledger WHERE user_id = $1`, userID)
}

// CountActiveUsersBetween counts distinct users with entries in [from, to).
func (r *XPRepository) CountActiveUsersBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.sum(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM xp_ledger WHERE created_at >= $1 AND created_at < $2`, from, to)
}

// ListByUser returns the newest entries first.
func (r *XPRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*xp.Entry, error) {
	query := `
		SELECT id::text, user_id::text, amount, source, related_quiz_id::text, related_course_id::text, reason, created_at
		FROM xp_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`
	rows, err := r.conn.q(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list xp entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*xp.Entry, error) {
		var (
			e      xp.Entry
			source string
		)
		err := row.Scan(&e.ID, &e.UserID, &e.Amount, &source, &e.QuizID, &e.CourseID, &e.Reason, &e.CreatedAt)
		e.Source = xp.Source(source)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan xp entries: %w", err)
	}
	return entries, nil
}

func (r *XPRepository) sum(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.conn.q(ctx).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to aggregate xp ledger: %w", err)
	}
	return n, nil
}

var _ xp.Repository = (*XPRepository)(nil)
