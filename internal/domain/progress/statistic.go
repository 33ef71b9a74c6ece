package progress

import (
	"math"
	"time"
)

// UserStatistic is the learner dashboard summary.
type UserStatistic struct {
	UserID           string    `json:"user_id"`
	QuizzesAttempted int       `json:"quizzes_attempted"`
	QuizzesPassed    int       `json:"quizzes_passed"`
	AverageScore     float64   `json:"average_score"`
	CoursesStarted   int       `json:"courses_started"`
	CoursesCompleted int       `json:"courses_completed"`
	TotalXP          int       `json:"total_xp"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	DaysActive       int       `json:"days_active"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StatisticInputs gathers the sources of a statistic recompute.
type StatisticInputs struct {
	Attempted    int
	Passed       int
	AverageScore float64
	LedgerXP     int
	ActiveDays   int
	Global       *GlobalProgress
}

// ComputeStatistic derives the statistic row.
func ComputeStatistic(userID string, in StatisticInputs, now time.Time) *UserStatistic {
	s := &UserStatistic{
		UserID:           userID,
		QuizzesAttempted: in.Attempted,
		QuizzesPassed:    in.Passed,
		AverageScore:     math.Round(in.AverageScore*100) / 100,
		TotalXP:          in.LedgerXP,
		DaysActive:       in.ActiveDays,
		UpdatedAt:        now.UTC(),
	}
	if in.Global != nil {
		s.CoursesStarted = in.Global.CoursesEnrolled
		s.CoursesCompleted = in.Global.CoursesCompleted
		s.CurrentStreak = in.Global.CurrentStreak
		s.LongestStreak = in.Global.LongestStreak
	}
	return s
}

// PlatformSnapshot is one day of platform-wide figures.
type PlatformSnapshot struct {
	Date             time.Time `json:"date"`
	TotalUsers       int       `json:"total_users"`
	NewUsers         int       `json:"new_users"`
	ActiveUsers      int       `json:"active_users"`
	TotalEnrollments int       `json:"total_enrollments"`
	Completions      int       `json:"completions"`
	XPGranted        int       `json:"xp_granted"`
	CreatedAt        time.Time `json:"created_at"`
}
