// Package memory provides in-memory repositories and a unit of work with
// rollback. It backs the test suite and DATABASE_URL-less development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
)

type pair struct {
	userID   string
	courseID string
}

type state struct {
	users          map[string]user.User
	ledger         []xp.Entry
	courses        map[string]course.Course
	quizzes        map[string]course.Quiz
	attempts       []course.Attempt
	enrollments    map[pair]course.Enrollment
	courseProgress map[pair]progress.CourseProgress
	global         map[string]progress.GlobalProgress
	statistics     map[string]progress.UserStatistic
	snapshots      map[string]progress.PlatformSnapshot
	notifications  []notification.Notification
}

func newState() *state {
	return &state{
		users:          make(map[string]user.User),
		courses:        make(map[string]course.Course),
		quizzes:        make(map[string]course.Quiz),
		enrollments:    make(map[pair]course.Enrollment),
		courseProgress: make(map[pair]progress.CourseProgress),
		global:         make(map[string]progress.GlobalProgress),
		statistics:     make(map[string]progress.UserStatistic),
		snapshots:      make(map[string]progress.PlatformSnapshot),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:          make(map[string]user.User, len(s.users)),
		ledger:         append([]xp.Entry(nil), s.ledger...),
		courses:        make(map[string]course.Course, len(s.courses)),
		quizzes:        make(map[string]course.Quiz, len(s.quizzes)),
		attempts:       append([]course.Attempt(nil), s.attempts...),
		enrollments:    make(map[pair]course.Enrollment, len(s.enrollments)),
		courseProgress: make(map[pair]progress.CourseProgress, len(s.courseProgress)),
		global:         make(map[string]progress.GlobalProgress, len(s.global)),
		statistics:     make(map[string]progress.UserStatistic, len(s.statistics)),
		snapshots:      make(map[string]progress.PlatformSnapshot, len(s.snapshots)),
		notifications:  append([]notification.Notification(nil), s.notifications...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range s.courseProgress {
		c.courseProgress[k] = v
	}
	for k, v := range s.global {
		c.global[k] = v
	}
	for k, v := range s.statistics {
		c.statistics[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = v
	}
	return c
}

// Store owns the in-memory state shared by every repository.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	s    *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{s: newState()}
}

func (st *Store) read(fn func(s *state)) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.s)
}

func (st *Store) write(fn func(s *state) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return fn(st.s)
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

type txKey struct{}

// TxManager serializes units of work and restores a snapshot on failure.
type TxManager struct {
	store *Store
}

// NewTxManager creates a unit of work over store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// WithinTx runs fn atomically. A nested call joins the outer unit of work.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.RLock()
	snapshot := m.store.s.clone()
	m.store.mu.RUnlock()

	txCtx, hooks := shared.WithCommitHooks(context.WithValue(ctx, txKey{}, true))

	defer func() {
		if p := recover(); p != nil {
			m.rollback(snapshot, hooks)
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		m.rollback(snapshot, hooks)
		return err
	}

	hooks.Run()
	return nil
}

func (m *TxManager) rollback(snapshot *state, hooks *shared.CommitHooks) {
	m.store.mu.Lock()
	m.store.s = snapshot
	m.store.mu.Unlock()
	hooks.Discard()
}

var _ shared.TxManager = (*TxManager)(nil)

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
