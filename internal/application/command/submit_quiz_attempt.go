package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT QUIZ ATTEMPT COMMAND
// Records an attempt and runs the full progress cascade before returning.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizAttemptCommand contains a scored quiz submission.
type SubmitQuizAttemptCommand struct {
	UserID string  `validate:"required"`
	QuizID string  `validate:"required"`
	Score  float64 `validate:"gte=0,lte=100"`
}

// Validate validates the command.
func (c SubmitQuizAttemptCommand) Validate() error {
	return validateStruct("SubmitQuizAttempt", c)
}

// SubmitQuizAttemptResult is the state after the cascade committed.
type SubmitQuizAttemptResult struct {
	Attempt  *course.Attempt
	Progress *progress.CourseProgress
	XP       int
	Level    int
}

// SubmitQuizAttemptHandler handles SubmitQuizAttemptCommand.
type SubmitQuizAttemptHandler struct {
	tx          shared.TxManager
	users       user.Repository
	quizzes     course.QuizRepository
	courses     course.Repository
	attempts    course.AttemptRepository
	enrollments course.EnrollmentRepository
	progress    progress.CourseProgressRepository
	events      shared.EventPublisher
	clock       timeutil.Clock
	logger      *logger.Logger
}

// NewSubmitQuizAttemptHandler creates the handler.
func NewSubmitQuizAttemptHandler(
	tx shared.TxManager,
	users user.Repository,
	quizzes course.QuizRepository,
	courses course.Repository,
	attempts course.AttemptRepository,
	enrollments course.EnrollmentRepository,
	progressRepo progress.CourseProgressRepository,
	events shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *SubmitQuizAttemptHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SubmitQuizAttemptHandler{
		tx:          tx,
		users:       users,
		quizzes:     quizzes,
		courses:     courses,
		attempts:    attempts,
		enrollments: enrollments,
		progress:    progressRepo,
		events:      events,
		clock:       clock,
		logger:      log.With(logger.String("handler", "submit_quiz_attempt")),
	}
}

// Handle executes the command.
func (h *SubmitQuizAttemptHandler) Handle(ctx context.Context, cmd SubmitQuizAttemptCommand) (*SubmitQuizAttemptResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &SubmitQuizAttemptResult{}
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		quiz, err := h.quizzes.GetByID(ctx, cmd.QuizID)
		if err != nil {
			return err
		}
		if _, err := h.enrollments.Get(ctx, cmd.UserID, quiz.CourseID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrNotEnrolled
			}
			return fmt.Errorf("failed to check enrollment: %w", err)
		}

		// Serializes concurrent submissions by the same user so History
		// cannot be read stale by two first passes.
		if _, err := h.users.GetForUpdate(ctx, cmd.UserID); err != nil {
			return err
		}
		history, err := h.attempts.History(ctx, cmd.UserID, quiz.ID)
		if err != nil {
			return fmt.Errorf("failed to load attempt history: %w", err)
		}
		attempt, err := quiz.Evaluate(cmd.UserID, cmd.Score, history, h.clock.Now())
		if err != nil {
			return err
		}
		if err := h.attempts.Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to save attempt: %w", err)
		}
		result.Attempt = attempt

		if err := h.events.Publish(ctx, shared.NewQuizAttemptRecordedEvent(
			attempt.ID, cmd.UserID, quiz.ID, quiz.Title, quiz.CourseID, attempt.Score, attempt.Passed, attempt.XPAwarded,
		)); err != nil {
			return err
		}

		if result.Progress, err = h.progress.Get(ctx, cmd.UserID, quiz.CourseID); err != nil {
			return fmt.Errorf("failed to reload course progress: %w", err)
		}
		u, err := h.users.GetByID(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		result.XP, result.Level = u.XP, u.Level
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("quiz attempt recorded",
		logger.UserID(cmd.UserID),
		logger.QuizID(cmd.QuizID),
		logger.Bool("passed", result.Attempt.Passed),
		logger.XPAmount(result.Attempt.XPAwarded),
	)
	return result, nil
}
