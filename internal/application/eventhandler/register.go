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

// OverviewInvalidator drops cached read models of a user.
type OverviewInvalidator interface {
	InvalidateOverview(ctx context.Context, userID string) error
}

// Config tunes the cascade.
type Config struct {
	// CompletionBonusXP is granted when a course flips to completed. 0 disables it.
	CompletionBonusXP int

	// RewardMilestones are XP totals that unlock a reward notification.
	RewardMilestones []int

	// StreakMilestones are streak lengths that earn a study-streak notification.
	StreakMilestones []int
}

// Dependencies lists what the handlers need.
type Dependencies struct {
	Users       user.Repository
	Enrollments course.EnrollmentRepository
	Ledger      *service.XPLedger
	Courses     *service.CourseProgressAggregator
	Globals     *service.GlobalProgressAggregator
	Stats       *service.StatisticsAggregator
	Dispatcher  *service.NotificationDispatcher
	Cache       OverviewInvalidator // optional
	Logger      *logger.Logger
}

// Register subscribes every handler. Within an attempt cascade the ledger,
// course and global stores are updated first; level, reward, streak and
// completion notifications are deferred until after the global recompute.
func Register(bus shared.EventSubscriber, deps Dependencies, cfg Config) error {
	rewards := notification.NewMilestones(cfg.RewardMilestones)
	streaks := notification.NewMilestones(cfg.StreakMilestones)

	subs := []struct {
		eventType shared.EventType
		handler   shared.EventHandler
	}{
		{shared.EventQuizAttemptRecorded, NewOnQuizAttemptRecordedHandler(deps.Ledger, deps.Courses, deps.Globals, deps.Stats, deps.Dispatcher, deps.Logger).Handle},
		{shared.EventEnrollmentCreated, NewOnEnrollmentCreatedHandler(deps.Courses, deps.Stats, deps.Dispatcher, deps.Logger).Handle},
		{shared.EventCourseCreated, NewOnCourseCreatedHandler(deps.Users, deps.Dispatcher, deps.Logger).Handle},
		{shared.EventQuizCreated, NewOnQuizCreatedHandler(deps.Enrollments, deps.Courses, deps.Globals, deps.Dispatcher, deps.Logger).Handle},
		{shared.EventXPGranted, NewOnXPGrantedHandler(deps.Dispatcher, rewards).Handle},
		{shared.EventLevelChanged, NewOnLevelChangedHandler(deps.Dispatcher).Handle},
		{shared.EventCourseCompleted, NewOnCourseCompletedHandler(deps.Ledger, deps.Dispatcher, cfg.CompletionBonusXP, deps.Logger).Handle},
		{shared.EventStreakExtended, NewOnStreakExtendedHandler(deps.Dispatcher, streaks).Handle},
		{shared.EventModeratorAppointed, NewOnModeratorAppointedHandler(deps.Dispatcher).Handle},
	}

	for _, s := range subs {
		if err := bus.Subscribe(s.eventType, s.handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.eventType, err)
		}
	}

	if deps.Cache != nil {
		if err := bus.SubscribeAll(NewCacheInvalidationHandler(deps.Cache, deps.Logger).Handle); err != nil {
			return fmt.Errorf("subscribe cache invalidation: %w", err)
		}
	}
	return nil
}

// CacheInvalidationHandler drops the user's cached overview once the unit
// of work that changed it has committed.
type CacheInvalidationHandler struct {
	cache  OverviewInvalidator
	logger *logger.Logger
}

// NewCacheInvalidationHandler creates the handler.
func NewCacheInvalidationHandler(cache OverviewInvalidator, log *logger.Logger) *CacheInvalidationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CacheInvalidationHandler{cache: cache, logger: log.With(logger.String("handler", "cache_invalidation"))}
}

// Handle implements shared.EventHandler.
func (h *CacheInvalidationHandler) Handle(ctx context.Context, event shared.Event) error {
	userID := affectedUser(event)
	if userID == "" {
		return nil
	}
	shared.AfterCommit(ctx, func() {
		if err := h.cache.InvalidateOverview(context.WithoutCancel(ctx), userID); err != nil {
			h.logger.Warn("failed to invalidate overview", logger.UserID(userID), logger.Err(err))
		}
	})
	return nil
}

func affectedUser(event shared.Event) string {
	switch e := event.(type) {
	case shared.QuizAttemptRecordedEvent:
		return e.UserID
	case shared.EnrollmentCreatedEvent:
		return e.UserID
	case shared.XPGrantedEvent:
		return e.UserID
	case shared.LevelChangedEvent:
		return e.UserID
	case shared.CourseCompletedEvent:
		return e.UserID
	default:
		return ""
	}
}
