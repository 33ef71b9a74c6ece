package course

import (
	"context"
	"time"
)

// Repository stores courses.
type Repository interface {
	Create(ctx context.Context, c *Course) error

	// GetByID returns ErrCourseNotFound when missing.
	GetByID(ctx context.Context, id string) (*Course, error)
}

// QuizRepository stores quizzes.
type QuizRepository interface {
	Create(ctx context.Context, q *Quiz) error

	// GetByID returns ErrQuizNotFound when missing.
	GetByID(ctx context.Context, id string) (*Quiz, error)

	// ListActiveByCourse returns the active quizzes of a course.
	ListActiveByCourse(ctx context.Context, courseID string) ([]*Quiz, error)
}

// AttemptStats aggregates a user's attempts across all quizzes.
type AttemptStats struct {
	Attempted    int
	Passed       int
	AverageScore float64
}

// AttemptRepository stores quiz attempts.
type AttemptRepository interface {
	// Create stores an attempt. A second attempt carrying XP for the same
	// user and quiz is rejected with ErrQuizXPAlreadyAwarded.
	Create(ctx context.Context, a *Attempt) error

	// History returns the attempt count and whether any attempt passed.
	History(ctx context.Context, userID, quizID string) (AttemptHistory, error)

	// ListPassed returns the user's passing attempts on any of quizIDs.
	ListPassed(ctx context.Context, userID string, quizIDs []string) ([]*Attempt, error)

	// StatsByUser aggregates over every attempt of the user.
	StatsByUser(ctx context.Context, userID string) (AttemptStats, error)
}

// EnrollmentRepository stores enrollments. (user_id, course_id) is unique.
type EnrollmentRepository interface {
	// Create returns ErrAlreadyEnrolled on a duplicate pair.
	Create(ctx context.Context, e *Enrollment) error

	// Get returns ErrEnrollmentNotFound when missing.
	Get(ctx context.Context, userID, courseID string) (*Enrollment, error)

	// UpdateProgress mirrors aggregated course progress onto the enrollment.
	UpdateProgress(ctx context.Context, userID, courseID string, progress float64, completed bool, completedAt *time.Time) error

	// ListUserIDsByCourse returns every enrolled user of a course.
	ListUserIDsByCourse(ctx context.Context, courseID string) ([]string, error)

	// Count returns the number of enrollments.
	Count(ctx context.Context) (int, error)

	// CountCompletedBetween counts enrollments completed in [from, to).
	CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error)
}
