package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client actions.
const (
	ActionMarkRead    = "mark_read"
	ActionMarkAllRead = "mark_all_read"
)

// Frame is an inbound client frame.
type Frame struct {
	Action         string `json:"action"`
	NotificationID string `json:"notification_id,omitempty"`
}

// Client is one websocket connection of a user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	inbox  Inbox
	logger *logger.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, inbox Inbox, log *logger.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		inbox:  inbox,
		logger: log.With(logger.UserID(userID)),
	}
}

// reply queues msg on this connection only.
func (c *Client) reply(msg notification.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Warn("failed to encode reply", logger.Err(err))
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.userID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("realtime queue full, dropping reply", logger.String("message_type", string(msg.Type)))
	}
}

func (c *Client) replyError(text string) {
	c.reply(notification.Message{Type: notification.MessageError, Error: text})
}

// handle executes one inbound frame.
func (c *Client) handle(ctx context.Context, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.replyError("invalid frame")
		return
	}

	switch f.Action {
	case ActionMarkRead:
		if f.NotificationID == "" {
			c.replyError("notification_id is required")
			return
		}
		if _, err := c.inbox.MarkRead(ctx, c.userID, f.NotificationID); err != nil {
			c.replyError(clientError(err))
			return
		}
		c.reply(notification.Message{Type: notification.MessageMarkedRead, NotificationID: f.NotificationID})

	case ActionMarkAllRead:
		n, err := c.inbox.MarkAllRead(ctx, c.userID)
		if err != nil {
			c.replyError(clientError(err))
			return
		}
		c.reply(notification.Message{Type: notification.MessageMarkedAllRead, Count: &n})

	default:
		c.replyError("unknown action")
	}
}

func clientError(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && (shared.IsNotFound(err) || shared.IsValidation(err)) {
		return de.Message
	}
	return "internal error"
}

// readPump runs on the serving goroutine until the connection drops.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket closed unexpectedly", logger.Err(err))
			}
			return
		}
		c.handle(ctx, raw)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
