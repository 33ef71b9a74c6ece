// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION INBOX QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListNotificationsQuery selects a page of a user's inbox.
type ListNotificationsQuery struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Validate validates the query.
func (q ListNotificationsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("notification", "List", shared.ErrValidation, "user_id is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return shared.NewDomainError("notification", "List", shared.ErrValidation, "limit and offset cannot be negative")
	}
	return nil
}

// NotificationListDTO is a page of notifications plus the unread counter.
type NotificationListDTO struct {
	Notifications []notification.Payload `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

// NotificationsHandler serves inbox reads.
type NotificationsHandler struct {
	repo notification.Repository
}

// NewNotificationsHandler creates the handler.
func NewNotificationsHandler(repo notification.Repository) *NotificationsHandler {
	return &NotificationsHandler{repo: repo}
}

// List returns newest first.
func (h *NotificationsHandler) List(ctx context.Context, q ListNotificationsQuery) (*NotificationListDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter := notification.ListFilter{UnreadOnly: q.UnreadOnly, Limit: q.Limit, Offset: q.Offset}.Normalize()

	items, err := h.repo.List(ctx, q.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := h.repo.CountUnread(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	dto := &NotificationListDTO{
		Notifications: make([]notification.Payload, 0, len(items)),
		UnreadCount:   unread,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	for _, n := range items {
		dto.Notifications = append(dto.Notifications, n.ToPayload())
	}
	return dto, nil
}

// UnreadCount returns the number of unread notifications.
func (h *NotificationsHandler) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, shared.NewDomainError("notification", "CountUnread", shared.ErrValidation, "user_id is required")
	}
	return h.repo.CountUnread(ctx, userID)
}

// Unread returns every unread notification, used for the realtime initial frame.
func (h *NotificationsHandler) Unread(ctx context.Context, userID string) ([]notification.Payload, error) {
	items, err := h.repo.List(ctx, userID, notification.ListFilter{UnreadOnly: true, Limit: notification.MaxListLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list unread notifications: %w", err)
	}
	out := make([]notification.Payload, 0, len(items))
	for _, n := range items {
		out = append(out, n.ToPayload())
	}
	return out, nil
}
