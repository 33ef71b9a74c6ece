package eventhandler

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/application/service"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// CONTENT FAN-OUT
// ═══════════════════════════════════════════════════════════════════════════

// OnCourseCreatedHandler announces an active course to every user whose
// level qualifies for it.
type OnCourseCreatedHandler struct {
	users      user.Repository
	dispatcher *service.NotificationDispatcher
	logger     *logger.Logger
}

// NewOnCourseCreatedHandler creates the handler.
func NewOnCourseCreatedHandler(users user.Repository, dispatcher *service.NotificationDispatcher, log *logger.Logger) *OnCourseCreatedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnCourseCreatedHandler{
		users:      users,
		dispatcher: dispatcher,
		logger:     log.With(logger.String("handler", "on_course_created")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnCourseCreatedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.CourseCreatedEvent)
	if !ok || !e.Active {
		return nil
	}

	ids, err := h.users.ListIDsWithLevelAtLeast(ctx, e.LevelRequired)
	if err != nil {
		return fmt.Errorf("list eligible users: %w", err)
	}

	n, err := h.dispatcher.NotifyMany(ctx, ids, notification.Draft{
		Type:    notification.TypeNewCourse,
		Title:   notification.TypeNewCourse.Emoji() + " New course available",
		Message: fmt.Sprintf("'%s' has been added. Start learning!", e.Title),
		Related: notification.Related{CourseID: e.CourseID},
	})
	if err != nil {
		return err
	}

	h.logger.Info("new course announced", logger.CourseID(e.CourseID), logger.Int("recipients", n))
	return nil
}

// OnQuizCreatedHandler refreshes the progress of everyone enrolled in the
// quiz's course and announces the quiz to them.
type OnQuizCreatedHandler struct {
	enrollments course.EnrollmentRepository
	courses     *service.CourseProgressAggregator
	globals     *service.GlobalProgressAggregator
	dispatcher  *service.NotificationDispatcher
	logger      *logger.Logger
}

// NewOnQuizCreatedHandler creates the handler.
func NewOnQuizCreatedHandler(
	enrollments course.EnrollmentRepository,
	courses *service.CourseProgressAggregator,
	globals *service.GlobalProgressAggregator,
	dispatcher *service.NotificationDispatcher,
	log *logger.Logger,
) *OnQuizCreatedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnQuizCreatedHandler{
		enrollments: enrollments,
		courses:     courses,
		globals:     globals,
		dispatcher:  dispatcher,
		logger:      log.With(logger.String("handler", "on_quiz_created")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnQuizCreatedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.QuizCreatedEvent)
	if !ok || !e.Active {
		return nil
	}

	ids, err := h.enrollments.ListUserIDsByCourse(ctx, e.CourseID)
	if err != nil {
		return fmt.Errorf("list enrolled users: %w", err)
	}

	// the course total changed, so every enrolled row is stale
	for _, id := range ids {
		if _, err := h.courses.Ensure(ctx, id, e.CourseID); err != nil {
			return fmt.Errorf("refresh course progress: %w", err)
		}
		if _, err := h.globals.Recompute(ctx, id); err != nil {
			return fmt.Errorf("refresh global progress: %w", err)
		}
	}

	_, err = h.dispatcher.NotifyMany(ctx, ids, notification.Draft{
		Type:    notification.TypeNewQuiz,
		Title:   notification.TypeNewQuiz.Emoji() + " New quiz available",
		Message: fmt.Sprintf("New quiz in '%s': %s", e.CourseTitle, e.Title),
		Related: notification.Related{CourseID: e.CourseID, QuizID: e.QuizID},
	})
	return err
}
