package progress

import (
	"math"
	"time"
)

// GlobalProgress is the per-user rollup across every CourseProgress row.
type GlobalProgress struct {
	UserID            string    `json:"user_id"`
	CoursesEnrolled   int       `json:"courses_enrolled"`
	CoursesCompleted  int       `json:"courses_completed"`
	QuizzesCompleted  int       `json:"quizzes_completed"`
	TotalXP           int       `json:"total_xp"`
	AveragePercentage float64   `json:"average_percentage"`
	CurrentStreak     int       `json:"current_streak"`
	LongestStreak     int       `json:"longest_streak"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ComputeGlobal rebuilds the rollup wholesale. totalXP comes from the ledger.
// LongestStreak is carried forward from prev and only ever grows.
func ComputeGlobal(userID string, rows []*CourseProgress, totalXP int, prev *GlobalProgress, now time.Time) *GlobalProgress {
	g := &GlobalProgress{
		UserID:          userID,
		CoursesEnrolled: len(rows),
		TotalXP:         totalXP,
		UpdatedAt:       now.UTC(),
	}

	var pctSum float64
	for _, r := range rows {
		if r.Completed {
			g.CoursesCompleted++
		}
		g.QuizzesCompleted += r.CompletedQuizzes
		pctSum += r.Percentage
		if r.StreakDays > g.CurrentStreak {
			g.CurrentStreak = r.StreakDays
		}
	}
	if len(rows) > 0 {
		g.AveragePercentage = math.Round(pctSum/float64(len(rows))*100) / 100
	}

	g.LongestStreak = g.CurrentStreak
	if prev != nil && prev.LongestStreak > g.LongestStreak {
		g.LongestStreak = prev.LongestStreak
	}
	return g
}

// SameFigures compares everything except the timestamp.
func (g *GlobalProgress) SameFigures(o *GlobalProgress) bool {
	if g == nil || o == nil {
		return g == o
	}
	a, b := *g, *o
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}
