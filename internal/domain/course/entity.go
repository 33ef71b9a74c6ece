// Package course contains courses, their quizzes, quiz attempts and enrollments.
package course

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

const (
	MinLevelRequired = 1
	MaxLevelRequired = 10

	DefaultPassingScore = 70.0
	DefaultXPReward     = 50
	DefaultMaxAttempts  = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course is a leveled unit of content. Users below LevelRequired cannot enroll.
type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	LevelRequired int       `json:"level_required"`
	Active        bool      `json:"is_active"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewCourseParams holds input for NewCourse.
type NewCourseParams struct {
	Title         string
	Description   string
	LevelRequired int
	Active        bool
	CreatedBy     string
}

// NewCourse validates and builds a course.
func NewCourse(p NewCourseParams) (*Course, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, shared.NewDomainError("course", "Create", shared.ErrValidation, "title is required")
	}
	if p.LevelRequired == 0 {
		p.LevelRequired = MinLevelRequired
	}
	if p.LevelRequired < MinLevelRequired || p.LevelRequired > MaxLevelRequired {
		return nil, shared.ErrInvalidLevelRequire
	}
	return &Course{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   strings.TrimSpace(p.Description),
		LevelRequired: p.LevelRequired,
		Active:        p.Active,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// CanEnroll checks the course is open to a user at userLevel.
func (c *Course) CanEnroll(userLevel int) error {
	if !c.Active {
		return shared.ErrCourseInactive
	}
	if userLevel < c.LevelRequired {
		return shared.ErrLevelTooLow
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ
// ══════════════════════════════════════════════════════════════════════════════

// Quiz belongs to a course. Only active quizzes count towards progress.
type Quiz struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	Title        string    `json:"title"`
	PassingScore float64   `json:"passing_score"`
	XPReward     int       `json:"xp_reward"`
	MaxAttempts  int       `json:"max_attempts"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewQuizParams holds input for NewQuiz. Zero values fall back to defaults.
type NewQuizParams struct {
	CourseID     string
	Title        string
	PassingScore float64
	XPReward     int
	MaxAttempts  int
	Active       bool
}

// NewQuiz validates and builds a quiz.
func NewQuiz(p NewQuizParams) (*Quiz, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, shared.NewDomainError("quiz", "Create", shared.ErrValidation, "title is required")
	}
	if p.CourseID == "" {
		return nil, shared.NewDomainError("quiz", "Create", shared.ErrInvalidID, "course id is required")
	}
	if p.PassingScore == 0 {
		p.PassingScore = DefaultPassingScore
	}
	if p.PassingScore < 0 || p.PassingScore > 100 {
		return nil, shared.NewDomainError("quiz", "Create", shared.ErrValueOutOfRange, "passing score must be between 0 and 100")
	}
	if p.XPReward == 0 {
		p.XPReward = DefaultXPReward
	}
	if p.XPReward < 0 {
		return nil, shared.NewDomainError("quiz", "Create", shared.ErrValueOutOfRange, "xp reward cannot be negative")
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.MaxAttempts < 0 {
		return nil, shared.NewDomainError("quiz", "Create", shared.ErrValueOutOfRange, "max attempts cannot be negative")
	}
	return &Quiz{
		ID:           uuid.NewString(),
		CourseID:     p.CourseID,
		Title:        title,
		PassingScore: p.PassingScore,
		XPReward:     p.XPReward,
		MaxAttempts:  p.MaxAttempts,
		Active:       p.Active,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Passes reports whether score meets the passing score.
func (q *Quiz) Passes(score float64) bool {
	return score >= q.PassingScore
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT
// ══════════════════════════════════════════════════════════════════════════════

// Attempt is one submission of a quiz. XPAwarded is non-zero only on the
// user's first passing attempt of the quiz.
type Attempt struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	QuizID    string    `json:"quiz_id"`
	Score     float64   `json:"score"`
	Passed    bool      `json:"passed"`
	XPAwarded int       `json:"xp_awarded"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptHistory summarizes the user's earlier attempts on a quiz.
type AttemptHistory struct {
	Count         int
	AlreadyPassed bool
}

// Evaluate checks the attempt rules and builds the attempt row.
func (q *Quiz) Evaluate(userID string, score float64, history AttemptHistory, at time.Time) (*Attempt, error) {
	if !q.Active {
		return nil, shared.ErrQuizInactive
	}
	if score < 0 || score > 100 {
		return nil, shared.ErrInvalidScore
	}
	if q.MaxAttempts > 0 && history.Count >= q.MaxAttempts {
		return nil, shared.ErrMaxAttemptsReached
	}

	a := &Attempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		QuizID:    q.ID,
		Score:     score,
		Passed:    q.Passes(score),
		CreatedAt: at.UTC(),
	}
	if a.Passed && !history.AlreadyPassed {
		a.XPAwarded = q.XPReward
	}
	return a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment registers a user in a course. Progress and Completed mirror the
// course progress row and are only written by the progress aggregator.
type Enrollment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CourseID    string     `json:"course_id"`
	Progress    float64    `json:"progress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
}

// NewEnrollment builds an enrollment row.
func NewEnrollment(userID, courseID string, at time.Time) *Enrollment {
	return &Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: at.UTC(),
	}
}
