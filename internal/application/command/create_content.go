package command

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE / CREATE QUIZ
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand publishes a new course.
type CreateCourseCommand struct {
	ActorID       string `validate:"required"`
	Title         string `validate:"required,max=200"`
	Description   string `validate:"max=5000"`
	LevelRequired int    `validate:"gte=1,lte=10"`
	Active        bool
}

// Validate validates the command.
func (c CreateCourseCommand) Validate() error {
	return validateStruct("CreateCourse", c)
}

// CreateQuizCommand adds a quiz to a course. Zero numeric fields take defaults.
type CreateQuizCommand struct {
	ActorID      string  `validate:"required"`
	CourseID     string  `validate:"required"`
	Title        string  `validate:"required,max=200"`
	PassingScore float64 `validate:"gte=0,lte=100"`
	XPReward     int     `validate:"gte=0"`
	MaxAttempts  int     `validate:"gte=0"`
	Active       bool
}

// Validate validates the command.
func (c CreateQuizCommand) Validate() error {
	return validateStruct("CreateQuiz", c)
}

// ContentHandler handles course and quiz creation.
type ContentHandler struct {
	tx      shared.TxManager
	users   user.Repository
	courses course.Repository
	quizzes course.QuizRepository
	events  shared.EventPublisher
	logger  *logger.Logger
}

// NewContentHandler creates the handler.
func NewContentHandler(
	tx shared.TxManager,
	users user.Repository,
	courses course.Repository,
	quizzes course.QuizRepository,
	events shared.EventPublisher,
	log *logger.Logger,
) *ContentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ContentHandler{
		tx:      tx,
		users:   users,
		courses: courses,
		quizzes: quizzes,
		events:  events,
		logger:  log.With(logger.String("handler", "content")),
	}
}

// CreateCourse executes CreateCourseCommand.
func (h *ContentHandler) CreateCourse(ctx context.Context, cmd CreateCourseCommand) (*course.Course, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var created *course.Course
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := h.authorize(ctx, cmd.ActorID); err != nil {
			return err
		}
		c, err := course.NewCourse(course.NewCourseParams{
			Title:         cmd.Title,
			Description:   cmd.Description,
			LevelRequired: cmd.LevelRequired,
			Active:        cmd.Active,
			CreatedBy:     cmd.ActorID,
		})
		if err != nil {
			return err
		}
		if err := h.courses.Create(ctx, c); err != nil {
			return fmt.Errorf("failed to create course: %w", err)
		}
		created = c
		return h.events.Publish(ctx, shared.NewCourseCreatedEvent(c.ID, c.Title, c.LevelRequired, c.Active, cmd.ActorID))
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("course created", logger.CourseID(created.ID), logger.Int("level_required", created.LevelRequired))
	return created, nil
}

// CreateQuiz executes CreateQuizCommand.
func (h *ContentHandler) CreateQuiz(ctx context.Context, cmd CreateQuizCommand) (*course.Quiz, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var created *course.Quiz
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := h.authorize(ctx, cmd.ActorID); err != nil {
			return err
		}
		c, err := h.courses.GetByID(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		q, err := course.NewQuiz(course.NewQuizParams{
			CourseID:     c.ID,
			Title:        cmd.Title,
			PassingScore: cmd.PassingScore,
			XPReward:     cmd.XPReward,
			MaxAttempts:  cmd.MaxAttempts,
			Active:       cmd.Active,
		})
		if err != nil {
			return err
		}
		if err := h.quizzes.Create(ctx, q); err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}
		created = q
		return h.events.Publish(ctx, shared.NewQuizCreatedEvent(q.ID, q.Title, c.ID, c.Title, q.Active))
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("quiz created", logger.QuizID(created.ID), logger.CourseID(created.CourseID))
	return created, nil
}

func (h *ContentHandler) authorize(ctx context.Context, actorID string) error {
	actor, err := h.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	return actor.Require(user.CapabilityManageContent)
}
