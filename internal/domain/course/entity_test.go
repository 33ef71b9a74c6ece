package course

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

func TestNewCourse(t *testing.T) {
	c, err := NewCourse(NewCourseParams{Title: " Wayuunaiki I ", Active: true})
	require.NoError(t, err)
	assert.Equal(t, "Wayuunaiki I", c.Title)
	assert.Equal(t, 1, c.LevelRequired)

	_, err = NewCourse(NewCourseParams{Title: "x", LevelRequired: 11})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = NewCourse(NewCourseParams{Title: ""})
	assert.True(t, shared.IsValidation(err))
}

func TestCourse_CanEnroll(t *testing.T) {
	c := &Course{Active: true, LevelRequired: 3}
	assert.ErrorIs(t, c.CanEnroll(2), shared.ErrForbidden)
	assert.NoError(t, c.CanEnroll(3))

	c.Active = false
	assert.ErrorIs(t, c.CanEnroll(5), shared.ErrInvalidState)
}

func TestNewQuiz_Defaults(t *testing.T) {
	q, err := NewQuiz(NewQuizParams{CourseID: "c1", Title: "Saludos", Active: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultPassingScore, q.PassingScore)
	assert.Equal(t, DefaultXPReward, q.XPReward)
	assert.Equal(t, DefaultMaxAttempts, q.MaxAttempts)

	_, err = NewQuiz(NewQuizParams{CourseID: "c1", Title: "x", PassingScore: 120})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestQuiz_Evaluate(t *testing.T) {
	q := &Quiz{ID: "q1", PassingScore: 70, XPReward: 50, MaxAttempts: 3, Active: true}
	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	a, err := q.Evaluate("u1", 70, AttemptHistory{}, at)
	require.NoError(t, err)
	assert.True(t, a.Passed)
	assert.Equal(t, 50, a.XPAwarded)

	again, err := q.Evaluate("u1", 95, AttemptHistory{Count: 1, AlreadyPassed: true}, at)
	require.NoError(t, err)
	assert.True(t, again.Passed)
	assert.Zero(t, again.XPAwarded)

	failed, err := q.Evaluate("u1", 69.9, AttemptHistory{}, at)
	require.NoError(t, err)
	assert.False(t, failed.Passed)
	assert.Zero(t, failed.XPAwarded)

	_, err = q.Evaluate("u1", 80, AttemptHistory{Count: 3}, at)
	assert.ErrorIs(t, err, shared.ErrLimitReached)

	_, err = q.Evaluate("u1", 101, AttemptHistory{}, at)
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	q.Active = false
	_, err = q.Evaluate("u1", 80, AttemptHistory{}, at)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}
