package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// CourseRepository implements course.Repository.
type CourseRepository struct {
	store *Store
}

// NewCourseRepository creates a course repository.
func NewCourseRepository(store *Store) *CourseRepository {
	return &CourseRepository{store: store}
}

func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	return r.store.write(func(s *state) error {
		if _, ok := s.courses[c.ID]; ok {
			return shared.NewDomainError("course", "Create", shared.ErrAlreadyExists, "course already exists")
		}
		s.courses[c.ID] = *c
		return nil
	})
}

func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	var (
		c  course.Course
		ok bool
	)
	r.store.read(func(s *state) { c, ok = s.courses[id] })
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return &c, nil
}

// QuizRepository implements course.QuizRepository.
type QuizRepository struct {
	store *Store
}

// NewQuizRepository creates a quiz repository.
func NewQuizRepository(store *Store) *QuizRepository {
	return &QuizRepository{store: store}
}

func (r *QuizRepository) Create(ctx context.Context, q *course.Quiz) error {
	return r.store.write(func(s *state) error {
		if _, ok := s.courses[q.CourseID]; !ok {
			return shared.ErrCourseNotFound
		}
		s.quizzes[q.ID] = *q
		return nil
	})
}

func (r *QuizRepository) GetByID(ctx context.Context, id string) (*course.Quiz, error) {
	var (
		q  course.Quiz
		ok bool
	)
	r.store.read(func(s *state) { q, ok = s.quizzes[id] })
	if !ok {
		return nil, shared.ErrQuizNotFound
	}
	return &q, nil
}

func (r *QuizRepository) ListActiveByCourse(ctx context.Context, courseID string) ([]*course.Quiz, error) {
	var out []*course.Quiz
	r.store.read(func(s *state) {
		for _, q := range s.quizzes {
			if q.CourseID == courseID && q.Active {
				q := q
				out = append(out, &q)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AttemptRepository implements course.AttemptRepository.
type AttemptRepository struct {
	store *Store
}

// NewAttemptRepository creates an attempt repository.
func NewAttemptRepository(store *Store) *AttemptRepository {
	return &AttemptRepository{store: store}
}

func (r *AttemptRepository) Create(ctx context.Context, a *course.Attempt) error {
	return r.store.write(func(s *state) error {
		if a.XPAwarded > 0 {
			for _, prev := range s.attempts {
				if prev.UserID == a.UserID && prev.QuizID == a.QuizID && prev.XPAwarded > 0 {
					return shared.ErrQuizXPAlreadyAwarded
				}
			}
		}
		s.attempts = append(s.attempts, *a)
		return nil
	})
}

func (r *AttemptRepository) History(ctx context.Context, userID, quizID string) (course.AttemptHistory, error) {
	var h course.AttemptHistory
	r.store.read(func(s *state) {
		for _, a := range s.attempts {
			if a.UserID == userID && a.QuizID == quizID {
				h.Count++
				h.AlreadyPassed = h.AlreadyPassed || a.Passed
			}
		}
	})
	return h, nil
}

func (r *AttemptRepository) ListPassed(ctx context.Context, userID string, quizIDs []string) ([]*course.Attempt, error) {
	want := make(map[string]bool, len(quizIDs))
	for _, id := range quizIDs {
		want[id] = true
	}
	var out []*course.Attempt
	r.store.read(func(s *state) {
		for _, a := range s.attempts {
			if a.UserID == userID && a.Passed && want[a.QuizID] {
				a := a
				out = append(out, &a)
			}
		}
	})
	return out, nil
}

func (r *AttemptRepository) StatsByUser(ctx context.Context, userID string) (course.AttemptStats, error) {
	var (
		st  course.AttemptStats
		sum float64
	)
	r.store.read(func(s *state) {
		for _, a := range s.attempts {
			if a.UserID != userID {
				continue
			}
			st.Attempted++
			sum += a.Score
			if a.Passed {
				st.Passed++
			}
		}
	})
	if st.Attempted > 0 {
		st.AverageScore = sum / float64(st.Attempted)
	}
	return st, nil
}

// EnrollmentRepository implements course.EnrollmentRepository.
type EnrollmentRepository struct {
	store *Store
}

// NewEnrollmentRepository creates an enrollment repository.
func NewEnrollmentRepository(store *Store) *EnrollmentRepository {
	return &EnrollmentRepository{store: store}
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *course.Enrollment) error {
	return r.store.write(func(s *state) error {
		k := pair{e.UserID, e.CourseID}
		if _, ok := s.enrollments[k]; ok {
			return shared.ErrAlreadyEnrolled
		}
		s.enrollments[k] = *e
		return nil
	})
}

func (r *EnrollmentRepository) Get(ctx context.Context, userID, courseID string) (*course.Enrollment, error) {
	var (
		e  course.Enrollment
		ok bool
	)
	r.store.read(func(s *state) { e, ok = s.enrollments[pair{userID, courseID}] })
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, userID, courseID string, pct float64, completed bool, completedAt *time.Time) error {
	return r.store.write(func(s *state) error {
		k := pair{userID, courseID}
		e, ok := s.enrollments[k]
		if !ok {
			return shared.ErrEnrollmentNotFound
		}
		e.Progress = pct
		e.Completed = completed
		e.CompletedAt = completedAt
		s.enrollments[k] = e
		return nil
	})
}

func (r *EnrollmentRepository) ListUserIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	var out []string
	r.store.read(func(s *state) {
		for k := range s.enrollments {
			if k.courseID == courseID {
				out = append(out, k.userID)
			}
		}
	})
	sort.Strings(out)
	return out, nil
}

func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	r.store.read(func(s *state) { n = len(s.enrollments) })
	return n, nil
}

func (r *EnrollmentRepository) CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	r.store.read(func(s *state) {
		for _, e := range s.enrollments {
			if e.Completed && e.CompletedAt != nil && inRange(*e.CompletedAt, from, to) {
				n++
			}
		}
	})
	return n, nil
}

var (
	_ course.Repository           = (*CourseRepository)(nil)
	_ course.QuizRepository       = (*QuizRepository)(nil)
	_ course.AttemptRepository    = (*AttemptRepository)(nil)
	_ course.EnrollmentRepository = (*EnrollmentRepository)(nil)
)
