package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	store *Store
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(store *Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.CreateMany(ctx, []*notification.Notification{n})
	return err
}

func (r *NotificationRepository) CreateMany(ctx context.Context, ns []*notification.Notification) (int, error) {
	if len(ns) == 0 {
		return 0, nil
	}
	err := r.store.write(func(s *state) error {
		for _, n := range ns {
			s.notifications = append(s.notifications, *n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ns), nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	var (
		n     notification.Notification
		found bool
	)
	r.store.read(func(s *state) {
		for _, candidate := range s.notifications {
			if candidate.ID == id {
				n, found = candidate, true
				return
			}
		}
	})
	if !found {
		return nil, shared.ErrNotificationNotFound
	}
	return &n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	var changed bool
	err := r.store.write(func(s *state) error {
		for i := range s.notifications {
			n := &s.notifications[i]
			if n.ID != id {
				continue
			}
			if !n.BelongsTo(userID) {
				return shared.ErrNotificationNotFound
			}
			changed = n.MarkRead(time.Now())
			return nil
		}
		return shared.ErrNotificationNotFound
	})
	return changed, err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.store.write(func(s *state) error {
		now := time.Now()
		for i := range s.notifications {
			n := &s.notifications[i]
			if n.UserID == userID && n.MarkRead(now) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *NotificationRepository) List(ctx context.Context, userID string, filter notification.ListFilter) ([]*notification.Notification, error) {
	filter = filter.Normalize()
	var out []*notification.Notification
	r.store.read(func(s *state) {
		for i := len(s.notifications) - 1; i >= 0; i-- {
			n := s.notifications[i]
			if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
				continue
			}
			out = append(out, &n)
		}
	})
	// newest first; later inserts win ties
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset >= len(out) {
		return []*notification.Notification{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	r.store.read(func(s *state) {
		for _, candidate := range s.notifications {
			if candidate.UserID == userID && !candidate.IsRead {
				n++
			}
		}
	})
	return n, nil
}

// All returns every stored notification, in insertion order.
func (r *NotificationRepository) All() []notification.Notification {
	var out []notification.Notification
	r.store.read(func(s *state) { out = append(out, s.notifications...) })
	return out
}

var _ notification.Repository = (*NotificationRepository)(nil)
