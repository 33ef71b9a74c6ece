package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

var notificationCopyColumns = []string{
	"id", "user_id", "type", "title", "message", "is_read", "created_at", "read_at",
	"related_course_id", "related_quiz_id", "related_user_id",
}

const notificationColumns = `
	id::text, user_id::text, type, title, message, is_read, created_at, read_at,
	related_course_id::text, related_quiz_id::text, related_user_id::text`

// Create inserts one notification.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, type, title, message, is_read, created_at, read_at,
			related_course_id, related_quiz_id, related_user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.conn.q(ctx).Exec(ctx, query, notificationRow(n)...)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// CreateMany bulk-inserts with COPY.
func (r *NotificationRepository) CreateMany(ctx context.Context, ns []*notification.Notification) (int, error) {
	if len(ns) == 0 {
		return 0, nil
	}
	n, err := r.conn.q(ctx).CopyFrom(ctx,
		pgx.Identifier{"notifications"},
		notificationCopyColumns,
		pgx.CopyFromSlice(len(ns), func(i int) ([]interface{}, error) { return notificationCopyRow(ns[i]) }),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy notifications: %w", err)
	}
	return int(n), nil
}

// GetByID returns a notification by ID.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	row := r.conn.q(ctx).QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		return nil, translate(err, shared.ErrNotificationNotFound, nil, "get notification")
	}
	return n, nil
}

// MarkRead flips one of the user's notifications to read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	var wasRead bool
	err := r.conn.q(ctx).QueryRow(ctx, `
		WITH target AS (
			SELECT id, is_read FROM notifications WHERE id = $1 AND user_id = $2 FOR UPDATE
		), updated AS (
			UPDATE notifications n SET is_read = TRUE, read_at = NOW()
			FROM target WHERE n.id = target.id AND NOT target.is_read
			RETURNING n.id
		)
		SELECT is_read FROM target
	`, id, userID).Scan(&wasRead)
	if err != nil {
		return false, translate(err, shared.ErrNotificationNotFound, nil, "mark notification read")
	}
	return !wasRead, nil
}

// MarkAllRead flips every unread notification of the user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.conn.q(ctx).Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// List returns the user's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, userID string, filter notification.ListFilter) ([]*notification.Notification, error) {
	filter = filter.Normalize()
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if filter.UnreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.conn.q(ctx).Query(ctx, query, userID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*notification.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return out, nil
}

// CountUnread returns the number of unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.conn.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func notificationRow(n *notification.Notification) []interface{} {
	return []interface{}{
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.IsRead, n.CreatedAt, n.ReadAt,
		n.RelatedCourseID, n.RelatedQuizID, n.RelatedUserID,
	}
}

// notificationCopyRow uses binary uuid values; COPY has no text fallback.
func notificationCopyRow(n *notification.Notification) ([]interface{}, error) {
	id, err := uuid.Parse(n.ID)
	if err != nil {
		return nil, fmt.Errorf("notification id: %w", err)
	}
	userID, err := uuid.Parse(n.UserID)
	if err != nil {
		return nil, fmt.Errorf("notification user id: %w", err)
	}
	related := make([]interface{}, 0, 3)
	for _, ref := range []*string{n.RelatedCourseID, n.RelatedQuizID, n.RelatedUserID} {
		if ref == nil {
			related = append(related, nil)
			continue
		}
		v, err := uuid.Parse(*ref)
		if err != nil {
			return nil, fmt.Errorf("notification related id: %w", err)
		}
		related = append(related, v)
	}
	return append([]interface{}{
		id, userID, string(n.Type), n.Title, n.Message, n.IsRead, n.CreatedAt, n.ReadAt,
	}, related...), nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n   notification.Notification
		typ string
	)
	err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt, &n.ReadAt,
		&n.RelatedCourseID, &n.RelatedQuizID, &n.RelatedUserID)
	if err != nil {
		return nil, err
	}
	n.Type = notification.Type(typ)
	return &n, nil
}

var _ notification.Repository = (*NotificationRepository)(nil)
