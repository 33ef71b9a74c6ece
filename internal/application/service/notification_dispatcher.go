package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION DISPATCHER
// Persists first, then pushes over the realtime channel once the enclosing
// unit of work has committed. Push failures are logged and swallowed.
// ══════════════════════════════════════════════════════════════════════════════

// SystemTraceLimit caps the trace included in system error notifications.
const SystemTraceLimit = 200

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// PublishTimeout bounds a single realtime publish.
	PublishTimeout time.Duration
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{PublishTimeout: 2 * time.Second}
}

// NotificationDispatcher creates notifications and fans them out.
type NotificationDispatcher struct {
	repo      notification.Repository
	users     user.Repository
	publisher notification.Publisher
	clock     timeutil.Clock
	logger    *logger.Logger
	config    DispatcherConfig
}

// NewNotificationDispatcher creates the dispatcher. A nil publisher disables realtime delivery.
func NewNotificationDispatcher(
	repo notification.Repository,
	users user.Repository,
	publisher notification.Publisher,
	clock timeutil.Clock,
	log *logger.Logger,
	config DispatcherConfig,
) *NotificationDispatcher {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultDispatcherConfig().PublishTimeout
	}
	return &NotificationDispatcher{
		repo:      repo,
		users:     users,
		publisher: publisher,
		clock:     clock,
		logger:    log.With(logger.Component("notification_dispatcher")),
		config:    config,
	}
}

// Notify persists one notification and schedules its realtime push.
func (d *NotificationDispatcher) Notify(ctx context.Context, userID string, draft notification.Draft) (*notification.Notification, error) {
	n, err := notification.New(userID, draft, d.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	d.push(ctx, n)
	return n, nil
}

// NotifyMany persists one notification per distinct recipient in a single
// batch and schedules the pushes. An empty recipient list is a no-op.
func (d *NotificationDispatcher) NotifyMany(ctx context.Context, userIDs []string, draft notification.Draft) (int, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	now := d.clock.Now()
	seen := make(map[string]struct{}, len(userIDs))
	batch := make([]*notification.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		batch = append(batch, draft.For(id, now))
	}

	created, err := d.repo.CreateMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}
	for _, n := range batch {
		d.push(ctx, n)
	}

	d.logger.Debug("notifications fanned out",
		logger.String("type", string(draft.Type)),
		logger.Int("recipients", created),
	)
	return created, nil
}

// NotifyCapability fans draft out to every user holding capability c.
// exclude drops one user id from the recipients (usually the actor).
func (d *NotificationDispatcher) NotifyCapability(ctx context.Context, c user.Capability, draft notification.Draft, exclude string) (int, error) {
	ids, err := d.users.ListIDsByRoles(ctx, user.RolesWith(c)...)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipients: %w", err)
	}
	if exclude != "" {
		filtered := ids[:0]
		for _, id := range ids {
			if id != exclude {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}
	return d.NotifyMany(ctx, ids, draft)
}

// NotifySystemError alerts every system-alert recipient. The trace is cut to
// SystemTraceLimit characters.
func (d *NotificationDispatcher) NotifySystemError(ctx context.Context, errMsg, trace string) (int, error) {
	message := "Error: " + errMsg
	if trace != "" {
		message += "\nTrace: " + notification.Truncate(trace, SystemTraceLimit)
	}
	return d.NotifyCapability(ctx, user.CapabilitySystemAlerts, notification.Draft{
		Type:    notification.TypeSystemError,
		Title:   "Critical system error",
		Message: message,
	}, "")
}

// MarkRead marks one notification read and pushes the new unread count.
func (d *NotificationDispatcher) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	changed, err := d.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return false, err
	}
	if changed {
		d.pushUnreadCount(ctx, userID)
	}
	return changed, nil
}

// MarkAllRead marks every unread notification of the user read and pushes the new unread count.
func (d *NotificationDispatcher) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := d.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if count > 0 {
		d.pushUnreadCount(ctx, userID)
	}
	return count, nil
}

func (d *NotificationDispatcher) pushUnreadCount(ctx context.Context, userID string) {
	shared.AfterCommit(ctx, func() {
		count, err := d.repo.CountUnread(context.WithoutCancel(ctx), userID)
		if err != nil {
			d.logger.Warn("failed to count unread notifications", logger.UserID(userID), logger.Err(err))
			return
		}
		d.publish(ctx, userID, notification.UnreadCountMessage(count))
	})
}

func (d *NotificationDispatcher) push(ctx context.Context, n *notification.Notification) {
	msg := notification.NewNotificationMessage(n)
	userID := n.UserID
	shared.AfterCommit(ctx, func() { d.publish(ctx, userID, msg) })
}

// publish is fire-and-forget: it never returns an error to the caller.
func (d *NotificationDispatcher) publish(ctx context.Context, userID string, msg notification.Message) {
	if d.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.PublishTimeout)
	defer cancel()

	if err := d.publisher.Publish(pubCtx, userID, msg); err != nil {
		d.logger.Warn("realtime delivery failed",
			logger.UserID(userID),
			logger.String("message_type", string(msg.Type)),
			logger.Err(err),
		)
	}
}
