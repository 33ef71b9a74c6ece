package ws

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/ivnmtz09/yonna-akademia/internal/application/command"
	"github.com/ivnmtz09/yonna-akademia/internal/application/query"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// Inbox is what a connection needs from the notification use cases.
type Inbox interface {
	Unread(ctx context.Context, userID string) ([]notification.Payload, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type inbox struct {
	queries  *query.NotificationsHandler
	commands *command.NotificationHandler
}

// NewInbox adapts the notification query and command handlers.
func NewInbox(queries *query.NotificationsHandler, commands *command.NotificationHandler) Inbox {
	return &inbox{queries: queries, commands: commands}
}

func (i *inbox) Unread(ctx context.Context, userID string) ([]notification.Payload, error) {
	return i.queries.Unread(ctx, userID)
}

func (i *inbox) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	return i.commands.MarkRead(ctx, command.MarkNotificationReadCommand{UserID: userID, NotificationID: notificationID})
}

func (i *inbox) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return i.commands.MarkAllRead(ctx, command.MarkAllNotificationsReadCommand{UserID: userID})
}

// Handler upgrades authenticated requests to notification sockets.
type Handler struct {
	hub      *Hub
	inbox    Inbox
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHandler creates the handler. An empty allowedOrigins accepts any origin.
func NewHandler(hub *Hub, inbox Inbox, allowedOrigins []string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		hub:   hub,
		inbox: inbox,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		logger: log.With(logger.Component("ws_handler")),
	}
}

// Serve upgrades the request for userID and blocks until the socket closes.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logger.UserID(userID), logger.Err(err))
		return
	}

	ctx := r.Context()
	c := newClient(h.hub, conn, userID, h.inbox, h.logger)
	h.hub.Register(c)
	h.logger.Debug("websocket connected", logger.UserID(userID))

	unread, err := h.inbox.Unread(ctx, userID)
	if err != nil {
		h.logger.Warn("failed to load unread notifications", logger.UserID(userID), logger.Err(err))
		unread = []notification.Payload{}
	}
	c.reply(notification.Message{Type: notification.MessageInitial, Notifications: unread})

	go c.writePump()
	c.readPump(ctx)
	h.logger.Debug("websocket disconnected", logger.UserID(userID))
}
