// Package progress contains the derived progress aggregates: per-course
// progress, global progress, user statistics and platform snapshots. Every
// field here is recomputed from source data, never incremented ad hoc.
package progress

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// CourseProgress is the (user, course) rollup.
type CourseProgress struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	CourseID         string     `json:"course_id"`
	CompletedQuizzes int        `json:"completed_quizzes"`
	TotalQuizzes     int        `json:"total_quizzes"`
	Percentage       float64    `json:"percentage"`
	XPEarned         int        `json:"xp_earned"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	StreakDays       int        `json:"streak_days"`
	LastStudyDate    *time.Time `json:"last_study_date,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewCourseProgress creates an empty row for a first-time pair.
func NewCourseProgress(userID, courseID string, now time.Time) *CourseProgress {
	return &CourseProgress{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		UpdatedAt: now.UTC(),
	}
}

// Tally is the live quiz data a course recompute is derived from.
type Tally struct {
	TotalQuizzes     int // active quizzes in the course
	CompletedQuizzes int // distinct active quizzes with a passing attempt
	XPEarned         int // XP awarded on those passing attempts
}

// Percentage returns completed/total*100 rounded to two decimals, or 0 for an empty course.
func (t Tally) Percentage() float64 {
	if t.TotalQuizzes <= 0 {
		return 0
	}
	p := float64(t.CompletedQuizzes) / float64(t.TotalQuizzes) * 100
	if p > 100 {
		p = 100
	}
	return math.Round(p*100) / 100
}

// Complete reports whether every active quiz has been passed. It is decided
// on counts: Percentage is rounded and can reach 100 with a quiz missing.
func (t Tally) Complete() bool {
	return t.TotalQuizzes > 0 && t.CompletedQuizzes >= t.TotalQuizzes
}

// Outcome reports what a recompute changed.
type Outcome struct {
	Changed        bool
	JustCompleted  bool
	StreakExtended bool
}

// ApplyTally overwrites the derived counters from t. Completion is sticky:
// it flips false->true once and is never cleared by a recompute.
func (p *CourseProgress) ApplyTally(t Tally, now time.Time) Outcome {
	var out Outcome
	pct := t.Percentage()

	if p.TotalQuizzes != t.TotalQuizzes || p.CompletedQuizzes != t.CompletedQuizzes ||
		p.XPEarned != t.XPEarned || p.Percentage != pct {
		out.Changed = true
	}
	p.TotalQuizzes = t.TotalQuizzes
	p.CompletedQuizzes = t.CompletedQuizzes
	p.XPEarned = t.XPEarned
	p.Percentage = pct

	if t.Complete() && !p.Completed {
		at := now.UTC()
		p.Completed = true
		p.CompletedAt = &at
		out.Changed = true
		out.JustCompleted = true
	}
	if out.Changed {
		p.UpdatedAt = now.UTC()
	}
	return out
}

// TouchStreak records study activity on now's calendar day in loc.
// Same day: no change. Exactly the previous day: +1. Otherwise: reset to 1.
//
// The date is the recompute date, not the attempt date.
func (p *CourseProgress) TouchStreak(now time.Time, loc *time.Location) Outcome {
	today := timeutil.CalendarDate(now, loc)
	var out Outcome

	switch {
	case p.LastStudyDate != nil && p.LastStudyDate.Equal(today):
		return out
	case p.LastStudyDate != nil && timeutil.DaysBetween(*p.LastStudyDate, today, time.UTC) == 1:
		p.StreakDays++
		out.StreakExtended = true
	default:
		p.StreakDays = 1
	}
	p.LastStudyDate = &today
	p.UpdatedAt = now.UTC()
	out.Changed = true
	return out
}

// Merge folds another outcome into o.
func (o Outcome) Merge(other Outcome) Outcome {
	return Outcome{
		Changed:        o.Changed || other.Changed,
		JustCompleted:  o.JustCompleted || other.JustCompleted,
		StreakExtended: o.StreakExtended || other.StreakExtended,
	}
}
