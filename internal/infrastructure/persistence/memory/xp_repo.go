package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
)

// XPRepository implements xp.Repository.
type XPRepository struct {
	store *Store
}

// NewXPRepository creates a ledger repository.
func NewXPRepository(store *Store) *XPRepository {
	return &XPRepository{store: store}
}

func (r *XPRepository) Append(ctx context.Context, e *xp.Entry) error {
	return r.store.write(func(s *state) error {
		s.ledger = append(s.ledger, *e)
		return nil
	})
}

func (r *XPRepository) SumByUser(ctx context.Context, userID string) (int, error) {
	return r.sum(func(e xp.Entry) bool { return e.UserID == userID }), nil
}

func (r *XPRepository) SumByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return r.sum(func(e xp.Entry) bool { return e.UserID == userID && !e.CreatedAt.Before(since) }), nil
}

func (r *XPRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*xp.Entry, error) {
	var out []*xp.Entry
	r.store.read(func(s *state) {
		for i := range s.ledger {
			if s.ledger[i].UserID == userID {
				e := s.ledger[i]
				out = append(out, &e)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *XPRepository) CountActiveDays(ctx context.Context, userID string) (int, error) {
	days := make(map[string]struct{})
	r.store.read(func(s *state) {
		for _, e := range s.ledger {
			if e.UserID == userID {
				days[dayKey(e.CreatedAt)] = struct{}{}
			}
		}
	})
	return len(days), nil
}

func (r *XPRepository) CountActiveUsersBetween(ctx context.Context, from, to time.Time) (int, error) {
	users := make(map[string]struct{})
	r.store.read(func(s *state) {
		for _, e := range s.ledger {
			if inRange(e.CreatedAt, from, to) {
				users[e.UserID] = struct{}{}
			}
		}
	})
	return len(users), nil
}

func (r *XPRepository) SumBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.sum(func(e xp.Entry) bool { return inRange(e.CreatedAt, from, to) }), nil
}

func (r *XPRepository) sum(match func(xp.Entry) bool) int {
	var total int
	r.store.read(func(s *state) {
		for _, e := range s.ledger {
			if match(e) {
				total += e.Amount
			}
		}
	})
	return total
}

var _ xp.Repository = (*XPRepository)(nil)
