package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// CourseProgressRepository implements progress.CourseProgressRepository.
type CourseProgressRepository struct {
	conn *Connection
}

// NewCourseProgressRepository creates a new CourseProgressRepository.
func NewCourseProgressRepository(conn *Connection) *CourseProgressRepository {
	return &CourseProgressRepository{conn: conn}
}

const courseProgressColumns = `
	id::text, user_id::text, course_id::text, completed_quizzes, total_quizzes, percentage::float8,
	xp_earned, completed, completed_at, streak_days, last_study_date, updated_at`

// Get returns the row of (userID, courseID).
func (r *CourseProgressRepository) Get(ctx context.Context, userID, courseID string) (*progress.CourseProgress, error) {
	row := r.conn.q(ctx).QueryRow(ctx,
		`SELECT `+courseProgressColumns+` FROM course_progress WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	return scanCourseProgress(row)
}

// GetForUpdate locks the row for the enclosing transaction.
func (r *CourseProgressRepository) GetForUpdate(ctx context.Context, userID, courseID string) (*progress.CourseProgress, error) {
	row := r.conn.q(ctx).QueryRow(ctx,
		`SELECT `+courseProgressColumns+` FROM course_progress WHERE user_id = $1 AND course_id = $2 FOR UPDATE`, userID, courseID)
	return scanCourseProgress(row)
}

// Upsert inserts or replaces the row keyed by (user, course).
func (r *CourseProgressRepository) Upsert(ctx context.Context, p *progress.CourseProgress) error {
	query := `
		INSERT INTO course_progress (
			id, user_id, course_id, completed_quizzes, total_quizzes, percentage,
			xp_earned, completed, completed_at, streak_days, last_study_date, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			completed_quizzes = EXCLUDED.completed_quizzes,
			total_quizzes = EXCLUDED.total_quizzes,
			percentage = EXCLUDED.percentage,
			xp_earned = EXCLUDED.xp_earned,
			completed = EXCLUDED.completed,
			completed_at = EXCLUDED.completed_at,
			streak_days = EXCLUDED.streak_days,
			last_study_date = EXCLUDED.last_study_date,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.conn.q(ctx).Exec(ctx, query,
		p.ID, p.UserID, p.CourseID, p.CompletedQuizzes, p.TotalQuizzes, p.Percentage,
		p.XPEarned, p.Completed, p.CompletedAt, p.StreakDays, p.LastStudyDate, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert course progress: %w", err)
	}
	return nil
}

// ListByUser returns every course progress row of the user.
func (r *CourseProgressRepository) ListByUser(ctx context.Context, userID string) ([]*progress.CourseProgress, error) {
	rows, err := r.conn.q(ctx).Query(ctx,
		`SELECT `+courseProgressColumns+` FROM course_progress WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list course progress: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*progress.CourseProgress, error) {
		return scanCourseProgress(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan course progress: %w", err)
	}
	return out, nil
}

func scanCourseProgress(row pgx.Row) (*progress.CourseProgress, error) {
	var p progress.CourseProgress
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.CompletedQuizzes, &p.TotalQuizzes, &p.Percentage,
		&p.XPEarned, &p.Completed, &p.CompletedAt, &p.StreakDays, &p.LastStudyDate, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err, shared.ErrProgressNotFound, nil, "scan course progress")
	}
	return &p, nil
}

var _ progress.CourseProgressRepository = (*CourseProgressRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// GLOBAL PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// GlobalProgressRepository implements progress.GlobalProgressRepository.
type GlobalProgressRepository struct {
	conn *Connection
}

// NewGlobalProgressRepository creates a new GlobalProgressRepository.
func NewGlobalProgressRepository(conn *Connection) *GlobalProgressRepository {
	return &GlobalProgressRepository{conn: conn}
}

// Get returns the user's global progress.
func (r *GlobalProgressRepository) Get(ctx context.Context, userID string) (*progress.GlobalProgress, error) {
	var g progress.GlobalProgress
	err := r.conn.q(ctx).QueryRow(ctx, `
		SELECT user_id::text, courses_enrolled, courses_completed, quizzes_completed, total_xp,
			average_percentage::float8, current_streak, longest_streak, updated_at
		FROM global_progress WHERE user_id = $1
	`, userID).Scan(&g.UserID, &g.CoursesEnrolled, &g.CoursesCompleted, &g.QuizzesCompleted, &g.TotalXP,
		&g.AveragePercentage, &g.CurrentStreak, &g.LongestStreak, &g.UpdatedAt)
	if err != nil {
		return nil, translate(err, shared.ErrProgressNotFound, nil, "get global progress")
	}
	return &g, nil
}

// Upsert inserts or replaces the user's row.
func (r *GlobalProgressRepository) Upsert(ctx context.Context, g *progress.GlobalProgress) error {
	_, err := r.conn.q(ctx).Exec(ctx, `
		INSERT INTO global_progress (
			user_id, courses_enrolled, courses_completed, quizzes_completed, total_xp,
			average_percentage, current_streak, longest_streak, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			courses_enrolled = EXCLUDED.courses_enrolled,
			courses_completed = EXCLUDED.courses_completed,
			quizzes_completed = EXCLUDED.quizzes_completed,
			total_xp = EXCLUDED.total_xp,
			average_percentage = EXCLUDED.average_percentage,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			updated_at = EXCLUDED.updated_at
	`, g.UserID, g.CoursesEnrolled, g.CoursesCompleted, g.QuizzesCompleted, g.TotalXP,
		g.AveragePercentage, g.CurrentStreak, g.LongestStreak, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert global progress: %w", err)
	}
	return nil
}

var _ progress.GlobalProgressRepository = (*GlobalProgressRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// USER STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// StatisticRepository implements progress.StatisticRepository.
type StatisticRepository struct {
	conn *Connection
}

// NewStatisticRepository creates a new StatisticRepository.
func NewStatisticRepository(conn *Connection) *StatisticRepository {
	return &StatisticRepository{conn: conn}
}

// Get returns the user's statistics.
func (r *StatisticRepository) Get(ctx context.Context, userID string) (*progress.UserStatistic, error) {
	var s progress.UserStatistic
	err := r.conn.q(ctx).QueryRow(ctx, `
		SELECT user_id::text, quizzes_attempted, quizzes_passed, average_score::float8, courses_started,
			courses_completed, total_xp, current_streak, longest_streak, days_active, updated_at
		FROM user_statistics WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.QuizzesAttempted, &s.QuizzesPassed, &s.AverageScore, &s.CoursesStarted,
		&s.CoursesCompleted, &s.TotalXP, &s.CurrentStreak, &s.LongestStreak, &s.DaysActive, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err, shared.ErrProgressNotFound, nil, "get statistics")
	}
	return &s, nil
}

// Upsert inserts or replaces the user's statistics.
func (r *StatisticRepository) Upsert(ctx context.Context, s *progress.UserStatistic) error {
	_, err := r.conn.q(ctx).Exec(ctx, `
		INSERT INTO user_statistics (
			user_id, quizzes_attempted, quizzes_passed, average_score, courses_started,
			courses_completed, total_xp, current_streak, longest_streak, days_active, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			quizzes_attempted = EXCLUDED.quizzes_attempted,
			quizzes_passed = EXCLUDED.quizzes_passed,
			average_score = EXCLUDED.average_score,
			courses_started = EXCLUDED.courses_started,
			courses_completed = EXCLUDED.courses_completed,
			total_xp = EXCLUDED.total_xp,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			days_active = EXCLUDED.days_active,
			updated_at = EXCLUDED.updated_at
	`, s.UserID, s.QuizzesAttempted, s.QuizzesPassed, s.AverageScore, s.CoursesStarted,
		s.CoursesCompleted, s.TotalXP, s.CurrentStreak, s.LongestStreak, s.DaysActive, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert statistics: %w", err)
	}
	return nil
}

var _ progress.StatisticRepository = (*StatisticRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// PLATFORM SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository implements progress.SnapshotRepository.
type SnapshotRepository struct {
	conn *Connection
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

// Upsert writes the snapshot of its day, replacing an earlier run.
func (r *SnapshotRepository) Upsert(ctx context.Context, s *progress.PlatformSnapshot) error {
	_, err := r.conn.q(ctx).Exec(ctx, `
		INSERT INTO platform_snapshots (
			date, total_users, new_users, active_users, total_enrollments, completions, xp_granted, created_at
		) VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			total_users = EXCLUDED.total_users,
			new_users = EXCLUDED.new_users,
			active_users = EXCLUDED.active_users,
			total_enrollments = EXCLUDED.total_enrollments,
			completions = EXCLUDED.completions,
			xp_granted = EXCLUDED.xp_granted,
			created_at = EXCLUDED.created_at
	`, s.Date.Format("2006-01-02"), s.TotalUsers, s.NewUsers, s.ActiveUsers, s.TotalEnrollments,
		s.Completions, s.XPGranted, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// Get returns the snapshot of date's calendar day.
func (r *SnapshotRepository) Get(ctx context.Context, date time.Time) (*progress.PlatformSnapshot, error) {
	var s progress.PlatformSnapshot
	err := r.conn.q(ctx).QueryRow(ctx, `
		SELECT date, total_users, new_users, active_users, total_enrollments, completions, xp_granted, created_at
		FROM platform_snapshots WHERE date = $1::date
	`, date.Format("2006-01-02")).Scan(&s.Date, &s.TotalUsers, &s.NewUsers, &s.ActiveUsers, &s.TotalEnrollments,
		&s.Completions, &s.XPGranted, &s.CreatedAt)
	if err != nil {
		return nil, translate(err, shared.NewDomainError("snapshot", "Find", shared.ErrNotFound, "snapshot not found"), nil, "get snapshot")
	}
	return &s, nil
}

var _ progress.SnapshotRepository = (*SnapshotRepository)(nil)
