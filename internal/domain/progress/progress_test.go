package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)

func TestTally_Percentage(t *testing.T) {
	assert.Equal(t, 0.0, Tally{}.Percentage())
	assert.Equal(t, 50.0, Tally{TotalQuizzes: 4, CompletedQuizzes: 2}.Percentage())
	assert.Equal(t, 33.33, Tally{TotalQuizzes: 3, CompletedQuizzes: 1}.Percentage())
	assert.Equal(t, 100.0, Tally{TotalQuizzes: 2, CompletedQuizzes: 2}.Percentage())
}

func TestApplyTally_CompletionIsSticky(t *testing.T) {
	p := NewCourseProgress("u1", "c1", day1)

	out := p.ApplyTally(Tally{TotalQuizzes: 4, CompletedQuizzes: 2, XPEarned: 100}, day1)
	assert.True(t, out.Changed)
	assert.False(t, out.JustCompleted)
	assert.Equal(t, 50.0, p.Percentage)
	assert.False(t, p.Completed)

	out = p.ApplyTally(Tally{TotalQuizzes: 4, CompletedQuizzes: 4, XPEarned: 200}, day1)
	assert.True(t, out.JustCompleted)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, day1, *p.CompletedAt)

	out = p.ApplyTally(Tally{TotalQuizzes: 4, CompletedQuizzes: 4, XPEarned: 200}, day1.Add(time.Hour))
	assert.False(t, out.JustCompleted)
	assert.False(t, out.Changed)
	assert.Equal(t, day1, *p.CompletedAt)

	// a quiz published after completion lowers the percentage but not the flag
	out = p.ApplyTally(Tally{TotalQuizzes: 5, CompletedQuizzes: 4, XPEarned: 200}, day1)
	assert.True(t, out.Changed)
	assert.True(t, p.Completed)
	assert.Equal(t, 80.0, p.Percentage)
}

func TestApplyTally_RoundedHundredIsNotCompletion(t *testing.T) {
	almost := Tally{TotalQuizzes: 40000, CompletedQuizzes: 39999}
	assert.Equal(t, 100.0, almost.Percentage())
	assert.False(t, almost.Complete())

	p := NewCourseProgress("u1", "c1", day1)
	out := p.ApplyTally(almost, day1)
	assert.False(t, out.JustCompleted)
	assert.False(t, p.Completed)
	assert.Nil(t, p.CompletedAt)

	out = p.ApplyTally(Tally{TotalQuizzes: 40000, CompletedQuizzes: 40000}, day1)
	assert.True(t, out.JustCompleted)
	assert.True(t, p.Completed)
}

func TestTouchStreak(t *testing.T) {
	p := NewCourseProgress("u1", "c1", day1)

	out := p.TouchStreak(day1, time.UTC)
	assert.True(t, out.Changed)
	assert.Equal(t, 1, p.StreakDays)

	out = p.TouchStreak(day1.Add(3*time.Hour), time.UTC)
	assert.False(t, out.Changed)
	assert.Equal(t, 1, p.StreakDays)

	out = p.TouchStreak(day1.AddDate(0, 0, 1), time.UTC)
	assert.True(t, out.StreakExtended)
	assert.Equal(t, 2, p.StreakDays)

	out = p.TouchStreak(day1.AddDate(0, 0, 4), time.UTC)
	assert.False(t, out.StreakExtended)
	assert.Equal(t, 1, p.StreakDays)
}

func TestComputeGlobal(t *testing.T) {
	rows := []*CourseProgress{
		{CompletedQuizzes: 4, Percentage: 100, Completed: true, StreakDays: 2},
		{CompletedQuizzes: 1, Percentage: 25, StreakDays: 5},
	}
	g := ComputeGlobal("u1", rows, 300, &GlobalProgress{LongestStreak: 9}, day1)
	assert.Equal(t, 2, g.CoursesEnrolled)
	assert.Equal(t, 1, g.CoursesCompleted)
	assert.Equal(t, 5, g.QuizzesCompleted)
	assert.Equal(t, 300, g.TotalXP)
	assert.Equal(t, 62.5, g.AveragePercentage)
	assert.Equal(t, 5, g.CurrentStreak)
	assert.Equal(t, 9, g.LongestStreak)

	again := ComputeGlobal("u1", rows, 300, g, day1.Add(time.Minute))
	assert.True(t, g.SameFigures(again))

	empty := ComputeGlobal("u2", nil, 0, nil, day1)
	assert.Zero(t, empty.AveragePercentage)
	assert.Zero(t, empty.LongestStreak)
}

func TestComputeStatistic(t *testing.T) {
	g := &GlobalProgress{CoursesEnrolled: 3, CoursesCompleted: 1, CurrentStreak: 2, LongestStreak: 6}
	s := ComputeStatistic("u1", StatisticInputs{Attempted: 5, Passed: 3, AverageScore: 71.456, LedgerXP: 150, ActiveDays: 4, Global: g}, day1)
	assert.Equal(t, 71.46, s.AverageScore)
	assert.Equal(t, 3, s.CoursesStarted)
	assert.Equal(t, 6, s.LongestStreak)
	assert.Equal(t, 150, s.TotalXP)
}
