package command

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// EnrollInCourseCommand registers a user in a course.
type EnrollInCourseCommand struct {
	UserID   string `validate:"required"`
	CourseID string `validate:"required"`
}

// Validate validates the command.
func (c EnrollInCourseCommand) Validate() error {
	return validateStruct("EnrollInCourse", c)
}

// EnrollInCourseHandler handles EnrollInCourseCommand.
type EnrollInCourseHandler struct {
	tx          shared.TxManager
	users       user.Repository
	courses     course.Repository
	enrollments course.EnrollmentRepository
	events      shared.EventPublisher
	clock       timeutil.Clock
	logger      *logger.Logger
}

// NewEnrollInCourseHandler creates the handler.
func NewEnrollInCourseHandler(
	tx shared.TxManager,
	users user.Repository,
	courses course.Repository,
	enrollments course.EnrollmentRepository,
	events shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *EnrollInCourseHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EnrollInCourseHandler{
		tx:          tx,
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		events:      events,
		clock:       clock,
		logger:      log.With(logger.String("handler", "enroll_in_course")),
	}
}

// Handle executes the command.
func (h *EnrollInCourseHandler) Handle(ctx context.Context, cmd EnrollInCourseCommand) (*course.Enrollment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var enrollment *course.Enrollment
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := h.users.GetByID(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		c, err := h.courses.GetByID(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		if err := c.CanEnroll(u.Level); err != nil {
			return err
		}

		enrollment = course.NewEnrollment(u.ID, c.ID, h.clock.Now())
		if err := h.enrollments.Create(ctx, enrollment); err != nil {
			if shared.IsAlreadyExists(err) {
				return shared.ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
		return h.events.Publish(ctx, shared.NewEnrollmentCreatedEvent(enrollment.ID, u.ID, c.ID, c.Title))
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("user enrolled", logger.UserID(cmd.UserID), logger.CourseID(cmd.CourseID))
	return enrollment, nil
}
