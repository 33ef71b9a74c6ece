package eventhandler

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/application/service"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// OnEnrollmentCreatedHandler creates the course progress row, refreshes
// global progress and confirms the enrollment to the user.
type OnEnrollmentCreatedHandler struct {
	courses    *service.CourseProgressAggregator
	stats      *service.StatisticsAggregator
	dispatcher *service.NotificationDispatcher
	logger     *logger.Logger
}

// NewOnEnrollmentCreatedHandler creates the handler.
func NewOnEnrollmentCreatedHandler(
	courses *service.CourseProgressAggregator,
	stats *service.StatisticsAggregator,
	dispatcher *service.NotificationDispatcher,
	log *logger.Logger,
) *OnEnrollmentCreatedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnEnrollmentCreatedHandler{
		courses:    courses,
		stats:      stats,
		dispatcher: dispatcher,
		logger:     log.With(logger.String("handler", "on_enrollment_created")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnEnrollmentCreatedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.EnrollmentCreatedEvent)
	if !ok {
		return nil
	}

	// enrolling is not study activity, so the streak is left alone
	if _, err := h.courses.Ensure(ctx, e.UserID, e.CourseID); err != nil {
		return fmt.Errorf("ensure course progress: %w", err)
	}
	// statistics refresh global progress first
	if _, err := h.stats.Recompute(ctx, e.UserID); err != nil {
		return fmt.Errorf("recompute statistics: %w", err)
	}

	_, err := h.dispatcher.Notify(ctx, e.UserID, notification.Draft{
		Type:    notification.TypeProgressUpdate,
		Title:   "✅ Enrollment successful",
		Message: fmt.Sprintf("You enrolled in '%s'. Start learning!", e.CourseTitle),
		Related: notification.Related{CourseID: e.CourseID},
	})
	return err
}
