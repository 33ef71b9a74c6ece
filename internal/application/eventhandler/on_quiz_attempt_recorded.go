// Package eventhandler contains the listeners that drive the progress
// cascade. They run synchronously on the event bus inside the unit of work of
// the command that published the event; any error fails that command.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/application/service"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON QUIZ ATTEMPT RECORDED
// Ledger -> course progress -> global progress -> notifications -> statistics.
// ═══════════════════════════════════════════════════════════════════════════

// OnQuizAttemptRecordedHandler runs the cascade for a recorded attempt.
type OnQuizAttemptRecordedHandler struct {
	ledger     *service.XPLedger
	courses    *service.CourseProgressAggregator
	globals    *service.GlobalProgressAggregator
	stats      *service.StatisticsAggregator
	dispatcher *service.NotificationDispatcher
	logger     *logger.Logger
}

// NewOnQuizAttemptRecordedHandler creates the handler.
func NewOnQuizAttemptRecordedHandler(
	ledger *service.XPLedger,
	courses *service.CourseProgressAggregator,
	globals *service.GlobalProgressAggregator,
	stats *service.StatisticsAggregator,
	dispatcher *service.NotificationDispatcher,
	log *logger.Logger,
) *OnQuizAttemptRecordedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnQuizAttemptRecordedHandler{
		ledger:     ledger,
		courses:    courses,
		globals:    globals,
		stats:      stats,
		dispatcher: dispatcher,
		logger:     log.With(logger.String("handler", "on_quiz_attempt_recorded")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnQuizAttemptRecordedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.QuizAttemptRecordedEvent)
	if !ok {
		h.logger.Warn("unexpected event", logger.EventType(string(event.EventType())))
		return nil
	}

	ctx, deferred, owner := shared.WithDeferred(ctx)

	h.logger.Debug("processing quiz attempt",
		logger.UserID(e.UserID),
		logger.QuizID(e.QuizID),
		logger.Bool("passed", e.Passed),
	)

	if e.XPAwarded > 0 {
		if _, err := h.ledger.Grant(ctx, xp.Grant{
			UserID:   e.UserID,
			Amount:   e.XPAwarded,
			Source:   xp.SourceQuiz,
			QuizID:   e.QuizID,
			CourseID: e.CourseID,
			Reason:   "quiz passed: " + e.QuizTitle,
		}); err != nil {
			return fmt.Errorf("grant quiz xp: %w", err)
		}
	}

	if _, err := h.courses.Recompute(ctx, e.UserID, e.CourseID); err != nil {
		return fmt.Errorf("recompute course progress: %w", err)
	}
	if _, err := h.globals.Recompute(ctx, e.UserID); err != nil {
		return fmt.Errorf("recompute global progress: %w", err)
	}

	// Level, reward, streak and completion notices raised above are held
	// until here so they never precede the global totals they report on.
	if owner {
		if err := deferred.Flush(ctx); err != nil {
			return fmt.Errorf("flush notifications: %w", err)
		}
	}

	if e.Passed {
		if _, err := h.dispatcher.Notify(ctx, e.UserID, progressDraft(e)); err != nil {
			return fmt.Errorf("notify progress: %w", err)
		}
	}

	if _, err := h.stats.Recompute(ctx, e.UserID); err != nil {
		return fmt.Errorf("recompute statistics: %w", err)
	}
	return nil
}

func progressDraft(e shared.QuizAttemptRecordedEvent) notification.Draft {
	msg := fmt.Sprintf("You completed '%s' and earned %d XP.", e.QuizTitle, e.XPAwarded)
	if e.XPAwarded == 0 {
		msg = fmt.Sprintf("You passed '%s' again. Score: %.0f.", e.QuizTitle, e.Score)
	}
	return notification.Draft{
		Type:    notification.TypeProgressUpdate,
		Title:   notification.TypeProgressUpdate.Emoji() + " Progress updated",
		Message: msg,
		Related: notification.Related{CourseID: e.CourseID, QuizID: e.QuizID},
	}
}
