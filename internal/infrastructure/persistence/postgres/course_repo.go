package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSES AND QUIZZES
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	query := `
		INSERT INTO courses (id, title, description, level_required, is_active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7)
	`
	_, err := r.conn.q(ctx).Exec(ctx, query,
		c.ID, c.Title, c.Description, c.LevelRequired, c.Active, c.CreatedBy, c.CreatedAt)
	return translate(err, nil, shared.ErrAlreadyExists, "create course")
}

// GetByID returns a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	query := `
		SELECT id::text, title, description, level_required, is_active, COALESCE(created_by::text, ''), created_at
		FROM courses WHERE id = $1
	`
	var c course.Course
	err := r.conn.q(ctx).QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Title, &c.Description, &c.LevelRequired, &c.Active, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return nil, translate(err, shared.ErrCourseNotFound, nil, "get course")
	}
	return &c, nil
}

var _ course.Repository = (*CourseRepository)(nil)

// QuizRepository implements course.QuizRepository.
type QuizRepository struct {
	conn *Connection
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(conn *Connection) *QuizRepository {
	return &QuizRepository{conn: conn}
}

const quizColumns = `id::text, course_id::text, title, passing_score::float8, xp_reward, max_attempts, is_active, created_at`

// Create inserts a quiz.
func (r *QuizRepository) Create(ctx context.Context, q *course.Quiz) error {
	query := `
		INSERT INTO quizzes (id, course_id, title, passing_score, xp_reward, max_attempts, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.conn.q(ctx).Exec(ctx, query,
		q.ID, q.CourseID, q.Title, q.PassingScore, q.XPReward, q.MaxAttempts, q.Active, q.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrCourseNotFound
		}
		return translate(err, nil, shared.ErrAlreadyExists, "create quiz")
	}
	return nil
}

// GetByID returns a quiz by ID.
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*course.Quiz, error) {
	row := r.conn.q(ctx).QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id)
	q, err := scanQuiz(row)
	if err != nil {
		return nil, translate(err, shared.ErrQuizNotFound, nil, "get quiz")
	}
	return q, nil
}

// ListActiveByCourse returns the active quizzes of a course.
func (r *QuizRepository) ListActiveByCourse(ctx context.Context, courseID string) ([]*course.Quiz, error) {
	rows, err := r.conn.q(ctx).Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE course_id = $1 AND is_active ORDER BY created_at, id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	quizzes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*course.Quiz, error) { return scanQuiz(row) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan quizzes: %w", err)
	}
	return quizzes, nil
}

func scanQuiz(row pgx.Row) (*course.Quiz, error) {
	var q course.Quiz
	err := row.Scan(&q.ID, &q.CourseID, &q.Title, &q.PassingScore, &q.XPReward, &q.MaxAttempts, &q.Active, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

var _ course.QuizRepository = (*QuizRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPTS
// ══════════════════════════════════════════════════════════════════════════════

// AttemptRepository implements course.AttemptRepository.
type AttemptRepository struct {
	conn *Connection
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(conn *Connection) *AttemptRepository {
	return &AttemptRepository{conn: conn}
}

// Create inserts an attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *course.Attempt) error {
	query := `
		INSERT INTO quiz_attempts (id, user_id, quiz_id, score, passed, xp_awarded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.conn.q(ctx).Exec(ctx, query, a.ID, a.UserID, a.QuizID, a.Score, a.Passed, a.XPAwarded, a.CreatedAt)
	return translate(err, nil, shared.ErrQuizXPAlreadyAwarded, "create attempt")
}

// History returns the attempt count and whether any attempt passed.
func (r *AttemptRepository) History(ctx context.Context, userID, quizID string) (course.AttemptHistory, error) {
	var h course.AttemptHistory
	err := r.conn.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(BOOL_OR(passed), FALSE) FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2`,
		userID, quizID).Scan(&h.Count, &h.AlreadyPassed)
	if err != nil {
		return course.AttemptHistory{}, fmt.Errorf("failed to load attempt history: %w", err)
	}
	return h, nil
}

// ListPassed returns the user's passing attempts on any of quizIDs.
func (r *AttemptRepository) ListPassed(ctx context.Context, userID string, quizIDs []string) ([]*course.Attempt, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id::text, user_id::text, quiz_id::text, score::float8, passed, xp_awarded, created_at
		FROM quiz_attempts
		WHERE user_id = $1 AND passed AND quiz_id = ANY($2::uuid[])
	`
	rows, err := r.conn.q(ctx).Query(ctx, query, userID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list passed attempts: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*course.Attempt, error) {
		var a course.Attempt
		err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.Passed, &a.XPAwarded, &a.CreatedAt)
		return &a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan attempts: %w", err)
	}
	return attempts, nil
}

// StatsByUser aggregates every attempt of the user.
func (r *AttemptRepository) StatsByUser(ctx context.Context, userID string) (course.AttemptStats, error) {
	var st course.AttemptStats
	err := r.conn.q(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE passed), COALESCE(AVG(score), 0)::float8
		FROM quiz_attempts WHERE user_id = $1
	`, userID).Scan(&st.Attempted, &st.Passed, &st.AverageScore)
	if err != nil {
		return course.AttemptStats{}, fmt.Errorf("failed to aggregate attempts: %w", err)
	}
	return st, nil
}

var _ course.AttemptRepository = (*AttemptRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements course.EnrollmentRepository.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// Create inserts an enrollment. The (user, course) pair is unique.
func (r *EnrollmentRepository) Create(ctx context.Context, e *course.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, user_id, course_id, progress, completed, completed_at, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.conn.q(ctx).Exec(ctx, query, e.ID, e.UserID, e.CourseID, e.Progress, e.Completed, e.CompletedAt, e.EnrolledAt)
	return translate(err, nil, shared.ErrAlreadyEnrolled, "create enrollment")
}

// Get returns the enrollment of userID in courseID.
func (r *EnrollmentRepository) Get(ctx context.Context, userID, courseID string) (*course.Enrollment, error) {
	query := `
		SELECT id::text, user_id::text, course_id::text, progress::float8, completed, completed_at, enrolled_at
		FROM enrollments WHERE user_id = $1 AND course_id = $2
	`
	var e course.Enrollment
	err := r.conn.q(ctx).QueryRow(ctx, query, userID, courseID).Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.Progress, &e.Completed, &e.CompletedAt, &e.EnrolledAt)
	if err != nil {
		return nil, translate(err, shared.ErrEnrollmentNotFound, nil, "get enrollment")
	}
	return &e, nil
}

// UpdateProgress mirrors course progress onto the enrollment.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, userID, courseID string, progress float64, completed bool, completedAt *time.Time) error {
	tag, err := r.conn.q(ctx).Exec(ctx, `
		UPDATE enrollments SET progress = $3, completed = $4, completed_at = $5
		WHERE user_id = $1 AND course_id = $2
	`, userID, courseID, progress, completed, completedAt)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

// ListUserIDsByCourse returns every enrolled user of a course.
func (r *EnrollmentRepository) ListUserIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	rows, err := r.conn.q(ctx).Query(ctx,
		`SELECT user_id::text FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolled users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrolled users: %w", err)
	}
	return ids, nil
}

// Count returns the number of enrollments.
func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM enrollments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return n, nil
}

// CountCompletedBetween counts enrollments completed in [from, to).
func (r *EnrollmentRepository) CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.conn.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE completed AND completed_at >= $1 AND completed_at < $2`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}

var _ course.EnrollmentRepository = (*EnrollmentRepository)(nil)
