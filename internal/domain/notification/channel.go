package notification

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REALTIME CHANNEL
// Messages pushed to a per-user channel. Delivery is best-effort.
// ══════════════════════════════════════════════════════════════════════════════

// MessageType is the "type" discriminator of a realtime message.
type MessageType string

const (
	MessageNewNotification MessageType = "new_notification"
	MessageInitial         MessageType = "initial"
	MessageUnreadCount     MessageType = "unread_count"
	MessageMarkedAllRead   MessageType = "marked_all_read"
	MessageMarkedRead      MessageType = "marked_read"
	MessageError           MessageType = "error"
)

// Payload is the wire shape of a notification.
type Payload struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Type            Type      `json:"type"`
	IsRead          bool      `json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
	RelatedCourseID *string   `json:"related_course_id"`
	RelatedQuizID   *string   `json:"related_quiz_id"`
	RelatedUserID   *string   `json:"related_user_id"`
}

// ToPayload converts a notification to its wire shape.
func (n *Notification) ToPayload() Payload {
	return Payload{
		ID:              n.ID,
		Title:           n.Title,
		Message:         n.Message,
		Type:            n.Type,
		IsRead:          n.IsRead,
		CreatedAt:       n.CreatedAt,
		RelatedCourseID: n.RelatedCourseID,
		RelatedQuizID:   n.RelatedQuizID,
		RelatedUserID:   n.RelatedUserID,
	}
}

// Message is a realtime frame. Only the fields relevant to Type are set.
type Message struct {
	Type           MessageType `json:"type"`
	Notification   *Payload    `json:"notification,omitempty"`
	Notifications  []Payload   `json:"notifications,omitempty"`
	Count          *int        `json:"count,omitempty"`
	NotificationID string      `json:"notification_id,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// NewNotificationMessage wraps a freshly created notification.
func NewNotificationMessage(n *Notification) Message {
	p := n.ToPayload()
	return Message{Type: MessageNewNotification, Notification: &p}
}

// InitialMessage carries the unread inbox sent on connect.
func InitialMessage(unread []*Notification) Message {
	payloads := make([]Payload, 0, len(unread))
	for _, n := range unread {
		payloads = append(payloads, n.ToPayload())
	}
	return Message{Type: MessageInitial, Notifications: payloads}
}

// UnreadCountMessage carries the unread counter.
func UnreadCountMessage(count int) Message {
	return Message{Type: MessageUnreadCount, Count: &count}
}

// ChannelFor returns the per-user pub/sub channel name.
func ChannelFor(userID string) string {
	return fmt.Sprintf("realtime:user:%s", userID)
}

// Publisher delivers a message to every live connection of a user.
type Publisher interface {
	Publish(ctx context.Context, userID string, msg Message) error
}
