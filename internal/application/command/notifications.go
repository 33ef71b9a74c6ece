package command

import (
	"context"

	"github.com/ivnmtz09/yonna-akademia/internal/application/service"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// MarkNotificationReadCommand marks one notification read.
type MarkNotificationReadCommand struct {
	UserID         string `validate:"required"`
	NotificationID string `validate:"required"`
}

// Validate validates the command.
func (c MarkNotificationReadCommand) Validate() error {
	return validateStruct("MarkNotificationRead", c)
}

// MarkAllNotificationsReadCommand marks the whole inbox read.
type MarkAllNotificationsReadCommand struct {
	UserID string `validate:"required"`
}

// Validate validates the command.
func (c MarkAllNotificationsReadCommand) Validate() error {
	return validateStruct("MarkAllNotificationsRead", c)
}

// NotificationHandler handles inbox read transitions.
type NotificationHandler struct {
	tx         shared.TxManager
	dispatcher *service.NotificationDispatcher
}

// NewNotificationHandler creates the handler.
func NewNotificationHandler(tx shared.TxManager, dispatcher *service.NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{tx: tx, dispatcher: dispatcher}
}

// MarkRead reports whether the notification changed state.
func (h *NotificationHandler) MarkRead(ctx context.Context, cmd MarkNotificationReadCommand) (bool, error) {
	if err := cmd.Validate(); err != nil {
		return false, err
	}
	var changed bool
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		changed, err = h.dispatcher.MarkRead(ctx, cmd.UserID, cmd.NotificationID)
		return err
	})
	return changed, err
}

// MarkAllRead returns how many notifications changed state.
func (h *NotificationHandler) MarkAllRead(ctx context.Context, cmd MarkAllNotificationsReadCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}
	var count int
	err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		count, err = h.dispatcher.MarkAllRead(ctx, cmd.UserID)
		return err
	})
	return count, err
}
