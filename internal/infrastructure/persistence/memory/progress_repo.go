package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// CourseProgressRepository implements progress.CourseProgressRepository.
type CourseProgressRepository struct {
	store *Store
}

// NewCourseProgressRepository creates a course progress repository.
func NewCourseProgressRepository(store *Store) *CourseProgressRepository {
	return &CourseProgressRepository{store: store}
}

func (r *CourseProgressRepository) Get(ctx context.Context, userID, courseID string) (*progress.CourseProgress, error) {
	var (
		p  progress.CourseProgress
		ok bool
	)
	r.store.read(func(s *state) { p, ok = s.courseProgress[pair{userID, courseID}] })
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return &p, nil
}

func (r *CourseProgressRepository) GetForUpdate(ctx context.Context, userID, courseID string) (*progress.CourseProgress, error) {
	return r.Get(ctx, userID, courseID)
}

func (r *CourseProgressRepository) Upsert(ctx context.Context, p *progress.CourseProgress) error {
	return r.store.write(func(s *state) error {
		k := pair{p.UserID, p.CourseID}
		if existing, ok := s.courseProgress[k]; ok {
			p.ID = existing.ID
		}
		s.courseProgress[k] = *p
		return nil
	})
}

func (r *CourseProgressRepository) ListByUser(ctx context.Context, userID string) ([]*progress.CourseProgress, error) {
	var out []*progress.CourseProgress
	r.store.read(func(s *state) {
		for k, p := range s.courseProgress {
			if k.userID == userID {
				p := p
				out = append(out, &p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

// GlobalProgressRepository implements progress.GlobalProgressRepository.
type GlobalProgressRepository struct {
	store *Store
}

// NewGlobalProgressRepository creates a global progress repository.
func NewGlobalProgressRepository(store *Store) *GlobalProgressRepository {
	return &GlobalProgressRepository{store: store}
}

func (r *GlobalProgressRepository) Get(ctx context.Context, userID string) (*progress.GlobalProgress, error) {
	var (
		g  progress.GlobalProgress
		ok bool
	)
	r.store.read(func(s *state) { g, ok = s.global[userID] })
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return &g, nil
}

func (r *GlobalProgressRepository) Upsert(ctx context.Context, g *progress.GlobalProgress) error {
	return r.store.write(func(s *state) error {
		s.global[g.UserID] = *g
		return nil
	})
}

// StatisticRepository implements progress.StatisticRepository.
type StatisticRepository struct {
	store *Store
}

// NewStatisticRepository creates a statistic repository.
func NewStatisticRepository(store *Store) *StatisticRepository {
	return &StatisticRepository{store: store}
}

func (r *StatisticRepository) Get(ctx context.Context, userID string) (*progress.UserStatistic, error) {
	var (
		st progress.UserStatistic
		ok bool
	)
	r.store.read(func(s *state) { st, ok = s.statistics[userID] })
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return &st, nil
}

func (r *StatisticRepository) Upsert(ctx context.Context, st *progress.UserStatistic) error {
	return r.store.write(func(s *state) error {
		s.statistics[st.UserID] = *st
		return nil
	})
}

// SnapshotRepository implements progress.SnapshotRepository.
type SnapshotRepository struct {
	store *Store
}

// NewSnapshotRepository creates a snapshot repository.
func NewSnapshotRepository(store *Store) *SnapshotRepository {
	return &SnapshotRepository{store: store}
}

func (r *SnapshotRepository) Upsert(ctx context.Context, snap *progress.PlatformSnapshot) error {
	return r.store.write(func(s *state) error {
		s.snapshots[dayKey(snap.Date)] = *snap
		return nil
	})
}

func (r *SnapshotRepository) Get(ctx context.Context, date time.Time) (*progress.PlatformSnapshot, error) {
	var (
		snap progress.PlatformSnapshot
		ok   bool
	)
	r.store.read(func(s *state) { snap, ok = s.snapshots[dayKey(date)] })
	if !ok {
		return nil, shared.NewDomainError("snapshot", "Find", shared.ErrNotFound, "snapshot not found")
	}
	return &snap, nil
}

var (
	_ progress.CourseProgressRepository = (*CourseProgressRepository)(nil)
	_ progress.GlobalProgressRepository = (*GlobalProgressRepository)(nil)
	_ progress.StatisticRepository      = (*StatisticRepository)(nil)
	_ progress.SnapshotRepository       = (*SnapshotRepository)(nil)
)
