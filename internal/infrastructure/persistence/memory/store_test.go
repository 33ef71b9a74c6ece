package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
)

func TestTxManager_RollbackRestoresState(t *testing.T) {
	store := NewStore()
	tx := NewTxManager(store)
	users := NewUserRepository(store)
	ledger := NewXPRepository(store)
	ctx := context.Background()

	u, err := user.NewUser(user.NewUserParams{Email: "a@b.co"})
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, u))

	published := false
	boom := errors.New("boom")
	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		e, err := xp.NewEntry(xp.Grant{UserID: u.ID, Amount: 100, Source: xp.SourceQuiz}, time.Now())
		require.NoError(t, err)
		require.NoError(t, ledger.Append(ctx, e))
		require.NoError(t, users.UpdateProgression(ctx, u.ID, 100, 2))
		shared.AfterCommit(ctx, func() { published = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, published)

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.XP)
	sum, _ := ledger.SumByUser(ctx, u.ID)
	assert.Zero(t, sum)
}

func TestTxManager_CommitRunsHooksAndNests(t *testing.T) {
	store := NewStore()
	tx := NewTxManager(store)
	var order []string

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		shared.AfterCommit(ctx, func() { order = append(order, "outer") })
		return tx.WithinTx(ctx, func(ctx context.Context) error {
			shared.AfterCommit(ctx, func() { order = append(order, "inner") })
			order = append(order, "body")
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "outer", "inner"}, order)
}

func TestEnrollmentRepository_UniquePair(t *testing.T) {
	repo := NewEnrollmentRepository(NewStore())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, course.NewEnrollment("u1", "c1", now)))
	err := repo.Create(ctx, course.NewEnrollment("u1", "c1", now))
	assert.True(t, shared.IsAlreadyExists(err))
}

func TestNotificationRepository_ReadTransitions(t *testing.T) {
	repo := NewNotificationRepository(NewStore())
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	d := notification.Draft{Type: notification.TypeSystem, Title: "Hi"}
	a, b, other := d.For("u1", now), d.For("u1", now.Add(time.Minute)), d.For("u2", now)
	n, err := repo.CreateMany(ctx, []*notification.Notification{a, b, other})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.CreateMany(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := repo.List(ctx, "u1", notification.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	_, err = repo.MarkRead(ctx, "u1", other.ID)
	assert.True(t, shared.IsNotFound(err))

	changed, err := repo.MarkRead(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.MarkRead(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	count, err := repo.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	unread, _ := repo.CountUnread(ctx, "u1")
	assert.Zero(t, unread)
	unread, _ = repo.CountUnread(ctx, "u2")
	assert.Equal(t, 1, unread)
}

func TestAttempts_OneXPAwardPerUserAndQuiz(t *testing.T) {
	repo := NewAttemptRepository(NewStore())
	ctx := context.Background()
	attempt := func(id string, xpAwarded int) *course.Attempt {
		return &course.Attempt{ID: id, UserID: "u1", QuizID: "q1", Score: 90, Passed: true, XPAwarded: xpAwarded}
	}

	require.NoError(t, repo.Create(ctx, attempt("a1", 50)))
	assert.ErrorIs(t, repo.Create(ctx, attempt("a2", 50)), shared.ErrQuizXPAlreadyAwarded)
	require.NoError(t, repo.Create(ctx, attempt("a3", 0)))

	h, err := repo.History(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.Equal(t, 2, h.Count)
	assert.True(t, h.AlreadyPassed)
}
