package notification

import "context"

// Repository stores notifications.
type Repository interface {
	// Create persists one notification.
	Create(ctx context.Context, n *Notification) error

	// CreateMany persists every notification in one batch and returns the
	// number of rows written. An empty slice writes nothing.
	CreateMany(ctx context.Context, ns []*Notification) (int, error)

	// GetByID returns ErrNotificationNotFound when missing.
	GetByID(ctx context.Context, id string) (*Notification, error)

	// MarkRead flips one of the user's notifications to read. It reports
	// whether the row changed and returns ErrNotificationNotFound when the id
	// does not belong to the user.
	MarkRead(ctx context.Context, userID, id string) (bool, error)

	// MarkAllRead flips every unread notification of the user and returns
	// how many changed.
	MarkAllRead(ctx context.Context, userID string) (int, error)

	// List returns the user's notifications, newest first.
	List(ctx context.Context, userID string, filter ListFilter) ([]*Notification, error)

	// CountUnread returns the number of unread notifications.
	CountUnread(ctx context.Context, userID string) (int, error)
}
