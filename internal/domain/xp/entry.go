// Package xp holds the append-only XP ledger model.
package xp

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// Source tags why XP was granted.
type Source string

const (
	SourceQuiz             Source = "quiz"
	SourceCourseCompletion Source = "course_completion"
	SourceDailyStreak      Source = "daily_streak"
	SourceAchievement      Source = "achievement"
	SourceSystemBonus      Source = "system_bonus"
	SourceLevelUp          Source = "level_up"
	SourceCorrection       Source = "correction"
)

// IsValid checks the source is known.
func (s Source) IsValid() bool {
	switch s {
	case SourceQuiz, SourceCourseCompletion, SourceDailyStreak, SourceAchievement,
		SourceSystemBonus, SourceLevelUp, SourceCorrection:
		return true
	default:
		return false
	}
}

func (s Source) String() string { return string(s) }

// Entry is one immutable ledger row.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int       `json:"amount"`
	Source    Source    `json:"source"`
	QuizID    *string   `json:"related_quiz_id,omitempty"`
	CourseID  *string   `json:"related_course_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Grant is the input to the ledger.
type Grant struct {
	UserID   string
	Amount   int
	Source   Source
	QuizID   string
	CourseID string
	Reason   string
}

// Validate rejects non-positive amounts and unknown sources.
func (g Grant) Validate() error {
	if g.UserID == "" {
		return shared.NewDomainError("xp", "Grant", shared.ErrInvalidID, "user id is required")
	}
	if g.Amount <= 0 {
		return shared.ErrNonPositiveXP
	}
	if !g.Source.IsValid() {
		return shared.ErrUnknownSource
	}
	return nil
}

// NewEntry builds a ledger entry from a validated grant.
func NewEntry(g Grant, at time.Time) (*Entry, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Entry{
		ID:        uuid.NewString(),
		UserID:    g.UserID,
		Amount:    g.Amount,
		Source:    g.Source,
		QuizID:    optional(g.QuizID),
		CourseID:  optional(g.CourseID),
		Reason:    g.Reason,
		CreatedAt: at.UTC(),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
