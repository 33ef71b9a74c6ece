package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE PROGRESS AGGREGATOR
// ══════════════════════════════════════════════════════════════════════════════

// CourseProgressAggregator owns CourseProgress rows. Every recompute derives
// the counters from live quiz and attempt data, so repeated or concurrent
// recomputes converge on the same row.
type CourseProgressAggregator struct {
	tx          shared.TxManager
	users       user.Repository
	courses     course.Repository
	quizzes     course.QuizRepository
	attempts    course.AttemptRepository
	enrollments course.EnrollmentRepository
	progress    progress.CourseProgressRepository
	events      shared.EventPublisher
	clock       timeutil.Clock
	location    *time.Location
	logger      *logger.Logger
}

// CourseProgressDeps groups the aggregator's collaborators.
type CourseProgressDeps struct {
	Tx          shared.TxManager
	Users       user.Repository
	Courses     course.Repository
	Quizzes     course.QuizRepository
	Attempts    course.AttemptRepository
	Enrollments course.EnrollmentRepository
	Progress    progress.CourseProgressRepository
	Events      shared.EventPublisher
	Clock       timeutil.Clock
	Location    *time.Location
	Logger      *logger.Logger
}

// NewCourseProgressAggregator creates the aggregator.
func NewCourseProgressAggregator(d CourseProgressDeps) *CourseProgressAggregator {
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &CourseProgressAggregator{
		tx:          d.Tx,
		users:       d.Users,
		courses:     d.Courses,
		quizzes:     d.Quizzes,
		attempts:    d.Attempts,
		enrollments: d.Enrollments,
		progress:    d.Progress,
		events:      d.Events,
		clock:       d.Clock,
		location:    d.Location,
		logger:      d.Logger.With(logger.Component("course_progress")),
	}
}

// CourseRecompute is the row after a recompute plus what changed.
type CourseRecompute struct {
	Progress *progress.CourseProgress
	Outcome  progress.Outcome
}

// Recompute refreshes the (user, course) row and records study activity for
// today. The row is created on first use.
//
// The streak counts the recompute date, not the attempt's timestamp.
func (a *CourseProgressAggregator) Recompute(ctx context.Context, userID, courseID string) (*CourseRecompute, error) {
	return a.recompute(ctx, userID, courseID, true)
}

// Ensure refreshes the row without recording study activity.
func (a *CourseProgressAggregator) Ensure(ctx context.Context, userID, courseID string) (*CourseRecompute, error) {
	return a.recompute(ctx, userID, courseID, false)
}

func (a *CourseProgressAggregator) recompute(ctx context.Context, userID, courseID string, touch bool) (*CourseRecompute, error) {
	var result *CourseRecompute
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := a.clock.Now()

		row, err := a.progress.GetForUpdate(ctx, userID, courseID)
		created := false
		switch {
		case errors.Is(err, shared.ErrNotFound):
			row = progress.NewCourseProgress(userID, courseID, now)
			created = true
		case err != nil:
			return fmt.Errorf("failed to load course progress: %w", err)
		}

		tally, err := a.tally(ctx, userID, courseID)
		if err != nil {
			return err
		}

		outcome := row.ApplyTally(tally, now)
		if touch {
			outcome = outcome.Merge(row.TouchStreak(now, a.location))
		}

		if created || outcome.Changed {
			if err := a.progress.Upsert(ctx, row); err != nil {
				return fmt.Errorf("failed to save course progress: %w", err)
			}
			if err := a.mirrorEnrollment(ctx, row); err != nil {
				return err
			}
		}

		result = &CourseRecompute{Progress: row, Outcome: outcome}

		if outcome.JustCompleted {
			if err := a.publishCompleted(ctx, row); err != nil {
				return err
			}
		}
		if outcome.StreakExtended {
			if err := a.events.Publish(ctx, shared.NewStreakExtendedEvent(userID, courseID, row.StreakDays)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// tally counts active quizzes and the distinct ones the user has passed.
func (a *CourseProgressAggregator) tally(ctx context.Context, userID, courseID string) (progress.Tally, error) {
	quizzes, err := a.quizzes.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return progress.Tally{}, fmt.Errorf("failed to list quizzes: %w", err)
	}
	if len(quizzes) == 0 {
		return progress.Tally{}, nil
	}

	ids := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	passed, err := a.attempts.ListPassed(ctx, userID, ids)
	if err != nil {
		return progress.Tally{}, fmt.Errorf("failed to list passed attempts: %w", err)
	}

	t := progress.Tally{TotalQuizzes: len(quizzes)}
	distinct := make(map[string]struct{}, len(passed))
	for _, att := range passed {
		distinct[att.QuizID] = struct{}{}
		t.XPEarned += att.XPAwarded
	}
	t.CompletedQuizzes = len(distinct)
	return t, nil
}

func (a *CourseProgressAggregator) mirrorEnrollment(ctx context.Context, row *progress.CourseProgress) error {
	err := a.enrollments.UpdateProgress(ctx, row.UserID, row.CourseID, row.Percentage, row.Completed, row.CompletedAt)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update enrollment progress: %w", err)
	}
	return nil
}

func (a *CourseProgressAggregator) publishCompleted(ctx context.Context, row *progress.CourseProgress) error {
	u, err := a.users.GetByID(ctx, row.UserID)
	if err != nil {
		return err
	}
	c, err := a.courses.GetByID(ctx, row.CourseID)
	if err != nil {
		return err
	}

	a.logger.Info("course completed",
		logger.UserID(row.UserID),
		logger.CourseID(row.CourseID),
	)
	return a.events.Publish(ctx, shared.NewCourseCompletedEvent(u.ID, u.Email, c.ID, c.Title, *row.CompletedAt))
}
