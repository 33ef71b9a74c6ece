package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
)

// UserRepository implements user.Repository.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.store.write(func(s *state) error {
		if _, ok := s.users[u.ID]; ok {
			return shared.ErrUserAlreadyExists
		}
		for _, existing := range s.users {
			if existing.Email == u.Email {
				return shared.ErrUserAlreadyExists
			}
		}
		s.users[u.ID] = *u
		return nil
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var (
		u  user.User
		ok bool
	)
	r.store.read(func(s *state) { u, ok = s.users[id] })
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

// GetForUpdate is GetByID: the unit of work already serializes writers.
func (r *UserRepository) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	return r.GetByID(ctx, id)
}

func (r *UserRepository) UpdateProgression(ctx context.Context, id string, xp, level int) error {
	return r.store.write(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return shared.ErrUserNotFound
		}
		u.XP = xp
		u.Level = level
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
		return nil
	})
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role user.Role) error {
	return r.store.write(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return shared.ErrUserNotFound
		}
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
		return nil
	})
}

func (r *UserRepository) ListIDsByRoles(ctx context.Context, roles ...user.Role) ([]string, error) {
	want := make(map[user.Role]bool, len(roles))
	for _, role := range roles {
		want[role] = true
	}
	return r.collect(func(u user.User) bool { return want[u.Role] }), nil
}

func (r *UserRepository) ListIDsWithLevelAtLeast(ctx context.Context, level int) ([]string, error) {
	return r.collect(func(u user.User) bool { return u.Level >= level }), nil
}

func (r *UserRepository) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	ids := r.collect(func(user.User) bool { return true })
	if offset >= len(ids) {
		return nil, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	r.store.read(func(s *state) { n = len(s.users) })
	return n, nil
}

func (r *UserRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	r.store.read(func(s *state) {
		for _, u := range s.users {
			if inRange(u.CreatedAt, from, to) {
				n++
			}
		}
	})
	return n, nil
}

// collect returns matching ids ordered by creation time, then id.
func (r *UserRepository) collect(match func(user.User) bool) []string {
	var users []user.User
	r.store.read(func(s *state) {
		for _, u := range s.users {
			if match(u) {
				users = append(users, u)
			}
		}
	})
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

var _ user.Repository = (*UserRepository)(nil)
