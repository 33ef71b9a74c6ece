package eventhandler

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/application/service"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// LEVEL, REWARDS, STREAKS, COMPLETION
// Notifications go through shared.Defer: inside an attempt cascade they are
// sent once global progress has been recomputed, elsewhere immediately.
// ═══════════════════════════════════════════════════════════════════════════

// OnLevelChangedHandler notifies strictly on a level increase.
type OnLevelChangedHandler struct {
	dispatcher *service.NotificationDispatcher
}

// NewOnLevelChangedHandler creates the handler.
func NewOnLevelChangedHandler(dispatcher *service.NotificationDispatcher) *OnLevelChangedHandler {
	return &OnLevelChangedHandler{dispatcher: dispatcher}
}

// Handle implements shared.EventHandler.
func (h *OnLevelChangedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.LevelChangedEvent)
	if !ok || !e.IsLevelUp() {
		return nil
	}
	return shared.Defer(ctx, func(ctx context.Context) error {
		_, err := h.dispatcher.Notify(ctx, e.UserID, notification.Draft{
			Type:    notification.TypeLevelUp,
			Title:   notification.TypeLevelUp.Emoji() + " Level up!",
			Message: fmt.Sprintf("You are now level %d", e.NewLevel),
		})
		return err
	})
}

// OnXPGrantedHandler notifies once per reward milestone crossed by a grant.
type OnXPGrantedHandler struct {
	dispatcher *service.NotificationDispatcher
	milestones notification.Milestones
}

// NewOnXPGrantedHandler creates the handler.
func NewOnXPGrantedHandler(dispatcher *service.NotificationDispatcher, milestones notification.Milestones) *OnXPGrantedHandler {
	return &OnXPGrantedHandler{dispatcher: dispatcher, milestones: milestones}
}

// Handle implements shared.EventHandler.
func (h *OnXPGrantedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.XPGrantedEvent)
	if !ok {
		return nil
	}
	crossed := h.milestones.Crossed(e.OldTotal, e.NewTotal)
	if len(crossed) == 0 {
		return nil
	}
	return shared.Defer(ctx, func(ctx context.Context) error {
		for _, m := range crossed {
			if _, err := h.dispatcher.Notify(ctx, e.UserID, notification.Draft{
				Type:    notification.TypeRewardUnlocked,
				Title:   notification.TypeRewardUnlocked.Emoji() + " Reward unlocked",
				Message: fmt.Sprintf("Congratulations! You reached %d XP and unlocked a special reward.", m),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// OnStreakExtendedHandler notifies when a course streak lands on a milestone.
type OnStreakExtendedHandler struct {
	dispatcher *service.NotificationDispatcher
	milestones notification.Milestones
}

// NewOnStreakExtendedHandler creates the handler.
func NewOnStreakExtendedHandler(dispatcher *service.NotificationDispatcher, milestones notification.Milestones) *OnStreakExtendedHandler {
	return &OnStreakExtendedHandler{dispatcher: dispatcher, milestones: milestones}
}

// Handle implements shared.EventHandler.
func (h *OnStreakExtendedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.StreakExtendedEvent)
	if !ok || !h.milestones.Hit(e.StreakDays) {
		return nil
	}
	return shared.Defer(ctx, func(ctx context.Context) error {
		_, err := h.dispatcher.Notify(ctx, e.UserID, notification.Draft{
			Type:    notification.TypeStudyStreak,
			Title:   notification.TypeStudyStreak.Emoji() + " Study streak",
			Message: fmt.Sprintf("Amazing! You have studied %d days in a row.", e.StreakDays),
			Related: notification.Related{CourseID: e.CourseID},
		})
		return err
	})
}

// OnCourseCompletedHandler tells moderators about the completion and grants
// the optional completion bonus.
type OnCourseCompletedHandler struct {
	ledger     *service.XPLedger
	dispatcher *service.NotificationDispatcher
	bonusXP    int
	logger     *logger.Logger
}

// NewOnCourseCompletedHandler creates the handler. bonusXP <= 0 disables the bonus.
func NewOnCourseCompletedHandler(ledger *service.XPLedger, dispatcher *service.NotificationDispatcher, bonusXP int, log *logger.Logger) *OnCourseCompletedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnCourseCompletedHandler{
		ledger:     ledger,
		dispatcher: dispatcher,
		bonusXP:    bonusXP,
		logger:     log.With(logger.String("handler", "on_course_completed")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnCourseCompletedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.CourseCompletedEvent)
	if !ok {
		return nil
	}

	err := shared.Defer(ctx, func(ctx context.Context) error {
		n, err := h.dispatcher.NotifyCapability(ctx, user.CapabilityModerate, notification.Draft{
			Type:    notification.TypeCourseCompleted,
			Title:   notification.TypeCourseCompleted.Emoji() + " Course completed",
			Message: fmt.Sprintf("%s completed every quiz of '%s'", e.UserEmail, e.CourseTitle),
			Related: notification.Related{CourseID: e.CourseID, UserID: e.UserID},
		}, e.UserID)
		if err != nil {
			return err
		}
		h.logger.Info("course completion reported", logger.UserID(e.UserID), logger.CourseID(e.CourseID), logger.Int("recipients", n))
		return nil
	})
	if err != nil {
		return err
	}

	// The bonus is granted in place so the global recompute counts it.
	if h.bonusXP > 0 {
		if _, err := h.ledger.Grant(ctx, xp.Grant{
			UserID:   e.UserID,
			Amount:   h.bonusXP,
			Source:   xp.SourceCourseCompletion,
			CourseID: e.CourseID,
			Reason:   "course completed: " + e.CourseTitle,
		}); err != nil {
			return fmt.Errorf("grant completion bonus: %w", err)
		}
	}
	return nil
}

// OnModeratorAppointedHandler tells admins about a new moderator.
type OnModeratorAppointedHandler struct {
	dispatcher *service.NotificationDispatcher
}

// NewOnModeratorAppointedHandler creates the handler.
func NewOnModeratorAppointedHandler(dispatcher *service.NotificationDispatcher) *OnModeratorAppointedHandler {
	return &OnModeratorAppointedHandler{dispatcher: dispatcher}
}

// Handle implements shared.EventHandler.
func (h *OnModeratorAppointedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.ModeratorAppointedEvent)
	if !ok {
		return nil
	}
	_, err := h.dispatcher.NotifyCapability(ctx, user.CapabilityManageUsers, notification.Draft{
		Type:    notification.TypeNewModerator,
		Title:   notification.TypeNewModerator.Emoji() + " New moderator",
		Message: fmt.Sprintf("New moderator: %s (%s)", e.DisplayName, e.Email),
		Related: notification.Related{UserID: e.UserID},
	}, e.UserID)
	return err
}
