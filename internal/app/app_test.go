package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/app"
	"github.com/ivnmtz09/yonna-akademia/internal/application/command"
	"github.com/ivnmtz09/yonna-akademia/internal/application/query"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/memory"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/scheduler/jobs"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type published struct {
	UserID  string
	Message notification.Message
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *recordingPublisher) Publish(_ context.Context, userID string, msg notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{UserID: userID, Message: msg})
	return nil
}

func (p *recordingPublisher) count(userID string, t notification.MessageType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.sent {
		if s.UserID == userID && s.Message.Type == t {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	app       *app.App
	notes     *memory.NotificationRepository
	publisher *recordingPublisher
	admin     *user.User
	moderator *user.User
	student   *user.User
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, opts app.Options) *fixture {
	t.Helper()
	return newFixtureWith(t, opts, nil)
}

// newFixtureWith lets a test wrap repositories before the app is assembled.
func newFixtureWith(t *testing.T, opts app.Options, wrap func(*app.Repositories)) *fixture {
	t.Helper()

	store := memory.NewStore()
	repos := app.MemoryRepositories(store)
	notes := repos.Notifications.(*memory.NotificationRepository)
	if wrap != nil {
		wrap(&repos)
	}
	pub := &recordingPublisher{}
	if opts.Publisher == nil {
		opts.Publisher = pub
	}
	opts.Clock = timeutil.FixedClock{T: testNow}

	a, err := app.New(repos, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		app:       a,
		notes:     notes,
		publisher: pub,
	}
	f.admin = f.register("admin@example.com", "admin")
	f.moderator = f.register("mod@example.com", "moderator")
	f.student = f.register("student@example.com", "regular")
	return f
}

func (f *fixture) register(email, role string) *user.User {
	f.t.Helper()
	u, err := f.app.Commands.Users.Register(f.ctx, command.RegisterUserCommand{Email: email, FirstName: "Test", Role: role})
	require.NoError(f.t, err)
	return u
}

func (f *fixture) course(quizzes int) (*course.Course, []*course.Quiz) {
	f.t.Helper()
	c, err := f.app.Commands.Content.CreateCourse(f.ctx, command.CreateCourseCommand{
		ActorID: f.admin.ID, Title: "Wayuunaiki I", LevelRequired: 1, Active: true,
	})
	require.NoError(f.t, err)

	out := make([]*course.Quiz, 0, quizzes)
	for i := 0; i < quizzes; i++ {
		q, err := f.app.Commands.Content.CreateQuiz(f.ctx, command.CreateQuizCommand{
			ActorID: f.admin.ID, CourseID: c.ID, Title: "Quiz", Active: true,
		})
		require.NoError(f.t, err)
		out = append(out, q)
	}
	return c, out
}

func (f *fixture) enroll(userID, courseID string) {
	f.t.Helper()
	_, err := f.app.Commands.EnrollInCourse.Handle(f.ctx, command.EnrollInCourseCommand{UserID: userID, CourseID: courseID})
	require.NoError(f.t, err)
}

func (f *fixture) submit(userID, quizID string, score float64) *command.SubmitQuizAttemptResult {
	f.t.Helper()
	res, err := f.app.Commands.SubmitQuizAttempt.Handle(f.ctx, command.SubmitQuizAttemptCommand{UserID: userID, QuizID: quizID, Score: score})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) stored(userID string, typ notification.Type) int {
	n := 0
	for _, note := range f.notes.All() {
		if note.UserID == userID && note.Type == typ {
			n++
		}
	}
	return n
}

func queryUnread(userID string) query.ListNotificationsQuery {
	return query.ListNotificationsQuery{UserID: userID, UnreadOnly: true}
}

func (f *fixture) assertLedgerConsistent(userID string) {
	f.t.Helper()
	u, err := f.app.Repos.Users.GetByID(f.ctx, userID)
	require.NoError(f.t, err)
	sum, err := f.app.Repos.Ledger.SumByUser(f.ctx, userID)
	require.NoError(f.t, err)
	assert.Equal(f.t, sum, u.XP, "user xp must equal ledger sum")
	assert.Equal(f.t, f.app.Calculator.LevelFor(u.XP), u.Level, "stored level must match xp")
}

// callTrail records repository calls in order.
type callTrail struct {
	mu    sync.Mutex
	calls []string
}

func (c *callTrail) add(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *callTrail) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

func (c *callTrail) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type trailUsers struct {
	user.Repository
	trail *callTrail
}

func (u trailUsers) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	u.trail.add("lock user")
	return u.Repository.GetForUpdate(ctx, id)
}

type trailAttempts struct {
	course.AttemptRepository
	trail *callTrail
}

func (a trailAttempts) History(ctx context.Context, userID, quizID string) (course.AttemptHistory, error) {
	a.trail.add("read history")
	return a.AttemptRepository.History(ctx, userID, quizID)
}

type trailGlobals struct {
	progress.GlobalProgressRepository
	trail *callTrail
}

func (g trailGlobals) Upsert(ctx context.Context, p *progress.GlobalProgress) error {
	g.trail.add("save global")
	return g.GlobalProgressRepository.Upsert(ctx, p)
}

type trailNotifications struct {
	notification.Repository
	trail *callTrail
}

func (n trailNotifications) Create(ctx context.Context, note *notification.Notification) error {
	n.trail.add("store " + string(note.Type))
	return n.Repository.Create(ctx, note)
}

// failingPublisher records every push and fails all of them.
type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *failingPublisher) Publish(context.Context, string, notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return errors.New("redis: connection refused")
}

func (p *failingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// ══════════════════════════════════════════════════════════════════════════════
// SCENARIOS
// ══════════════════════════════════════════════════════════════════════════════

func TestGrant_LevelUpNotifiesOnce(t *testing.T) {
	f := newFixture(t, app.Options{})

	res, err := f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 100, Source: xp.SourceSystemBonus})
	require.NoError(t, err)

	assert.Equal(t, 0, res.OldTotal)
	assert.Equal(t, 100, res.NewTotal)
	assert.Equal(t, 1, res.Level.Old)
	assert.Equal(t, 2, res.Level.New)

	assert.Equal(t, 1, f.stored(f.student.ID, notification.TypeLevelUp))
	assert.Equal(t, 1, f.publisher.count(f.student.ID, notification.MessageNewNotification))
	f.assertLedgerConsistent(f.student.ID)

	// Same level after a small grant: no second level-up.
	_, err = f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 10, Source: xp.SourceSystemBonus})
	require.NoError(t, err)
	assert.Equal(t, 1, f.stored(f.student.ID, notification.TypeLevelUp))
	f.assertLedgerConsistent(f.student.ID)
}

func TestGrant_DeliveryFailureKeepsStoredNotification(t *testing.T) {
	pub := &failingPublisher{}
	f := newFixture(t, app.Options{Publisher: pub})

	res, err := f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 100, Source: xp.SourceSystemBonus})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Level.New)

	assert.Equal(t, 1, f.stored(f.student.ID, notification.TypeLevelUp))
	assert.Positive(t, pub.count())
	f.assertLedgerConsistent(f.student.ID)
}

func TestGrant_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, app.Options{})

	_, err := f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 0, Source: xp.SourceSystemBonus})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	sum, err := f.app.Repos.Ledger.SumByUser(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestGrant_RewardMilestonesCrossedOnce(t *testing.T) {
	f := newFixture(t, app.Options{RewardMilestones: []int{100, 250}})

	_, err := f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 300, Source: xp.SourceSystemBonus})
	require.NoError(t, err)
	assert.Equal(t, 2, f.stored(f.student.ID, notification.TypeRewardUnlocked))

	_, err = f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 10, Source: xp.SourceSystemBonus})
	require.NoError(t, err)
	assert.Equal(t, 2, f.stored(f.student.ID, notification.TypeRewardUnlocked))
}

func TestQuizAttempts_HalfTheQuizzesIsFiftyPercent(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(4)
	f.enroll(f.student.ID, c.ID)

	f.submit(f.student.ID, quizzes[0].ID, 90)
	res := f.submit(f.student.ID, quizzes[1].ID, 80)

	require.NotNil(t, res.Progress)
	assert.Equal(t, 4, res.Progress.TotalQuizzes)
	assert.Equal(t, 2, res.Progress.CompletedQuizzes)
	assert.InDelta(t, 50.0, res.Progress.Percentage, 0.001)
	assert.Equal(t, 2*course.DefaultXPReward, res.Progress.XPEarned)
	assert.False(t, res.Progress.Completed)
	assert.Equal(t, 1, res.Progress.StreakDays)

	enrollment, err := f.app.Repos.Enrollments.Get(f.ctx, f.student.ID, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, enrollment.Progress, 0.001)

	global, err := f.app.Repos.Globals.Get(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, global.CoursesEnrolled)
	assert.Equal(t, 2, global.QuizzesCompleted)
	assert.Equal(t, 2*course.DefaultXPReward, global.TotalXP)

	// One for the enrollment plus one per pass.
	assert.Equal(t, 3, f.stored(f.student.ID, notification.TypeProgressUpdate))
	f.assertLedgerConsistent(f.student.ID)
}

func TestQuizAttempts_XPOnlyOnFirstPass(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(2)
	f.enroll(f.student.ID, c.ID)

	first := f.submit(f.student.ID, quizzes[0].ID, 95)
	second := f.submit(f.student.ID, quizzes[0].ID, 100)

	assert.Equal(t, course.DefaultXPReward, first.Attempt.XPAwarded)
	assert.Zero(t, second.Attempt.XPAwarded)
	assert.Equal(t, course.DefaultXPReward, second.XP)
	assert.Equal(t, course.DefaultXPReward, second.Progress.XPEarned)
	f.assertLedgerConsistent(f.student.ID)
}

func TestQuizAttempts_LocksUserBeforeReadingHistory(t *testing.T) {
	trail := &callTrail{}
	f := newFixtureWith(t, app.Options{}, func(r *app.Repositories) {
		r.Users = trailUsers{Repository: r.Users, trail: trail}
		r.Attempts = trailAttempts{AttemptRepository: r.Attempts, trail: trail}
	})
	c, quizzes := f.course(1)
	f.enroll(f.student.ID, c.ID)
	trail.reset()

	f.submit(f.student.ID, quizzes[0].ID, 90)

	calls := trail.list()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, []string{"lock user", "read history"}, calls[:2])
}

func TestQuizAttempts_LevelUpStoredAfterGlobalRecompute(t *testing.T) {
	trail := &callTrail{}
	f := newFixtureWith(t, app.Options{RewardMilestones: []int{100}}, func(r *app.Repositories) {
		r.Globals = trailGlobals{GlobalProgressRepository: r.Globals, trail: trail}
		r.Notifications = trailNotifications{Repository: r.Notifications, trail: trail}
	})
	c, quizzes := f.course(3)
	f.enroll(f.student.ID, c.ID)
	f.submit(f.student.ID, quizzes[0].ID, 90)
	trail.reset()

	// The second pass brings the student to 100 XP, level 2 and a reward.
	f.submit(f.student.ID, quizzes[1].ID, 90)

	calls := trail.list()
	require.Len(t, calls, 4)
	assert.Equal(t, "save global", calls[0])
	assert.ElementsMatch(t, []string{
		"store " + string(notification.TypeLevelUp),
		"store " + string(notification.TypeRewardUnlocked),
	}, calls[1:3])
	assert.Equal(t, "store "+string(notification.TypeProgressUpdate), calls[3])
	assert.Equal(t, 1, f.stored(f.student.ID, notification.TypeLevelUp))
	assert.Equal(t, 1, f.stored(f.student.ID, notification.TypeRewardUnlocked))
}

func TestQuizAttempts_ConcurrentSubmissionsAwardOnce(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(2)
	f.enroll(f.student.ID, c.ID)

	const submissions = course.DefaultMaxAttempts + 2
	errs := make([]error, submissions)
	var wg sync.WaitGroup
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.app.Commands.SubmitQuizAttempt.Handle(f.ctx, command.SubmitQuizAttemptCommand{
				UserID: f.student.ID, QuizID: quizzes[0].ID, Score: 95,
			})
		}()
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrMaxAttemptsReached)
	}
	assert.Equal(t, course.DefaultMaxAttempts, accepted)

	u, err := f.app.Repos.Users.GetByID(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, course.DefaultXPReward, u.XP)
	f.assertLedgerConsistent(f.student.ID)
}

func TestQuizAttempts_CompletionNotifiesModeratorsOnce(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(4)
	f.enroll(f.student.ID, c.ID)

	var last *command.SubmitQuizAttemptResult
	for _, q := range quizzes {
		last = f.submit(f.student.ID, q.ID, 100)
	}

	require.NotNil(t, last.Progress)
	assert.True(t, last.Progress.Completed)
	assert.InDelta(t, 100.0, last.Progress.Percentage, 0.001)
	assert.NotNil(t, last.Progress.CompletedAt)

	assert.Equal(t, 1, f.stored(f.moderator.ID, notification.TypeCourseCompleted))
	assert.Equal(t, 1, f.stored(f.admin.ID, notification.TypeCourseCompleted))
	assert.Zero(t, f.stored(f.student.ID, notification.TypeCourseCompleted))

	// A later pass on a completed course never re-announces completion.
	f.submit(f.student.ID, quizzes[0].ID, 100)
	assert.Equal(t, 1, f.stored(f.moderator.ID, notification.TypeCourseCompleted))

	enrollment, err := f.app.Repos.Enrollments.Get(f.ctx, f.student.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, enrollment.Completed)
	f.assertLedgerConsistent(f.student.ID)
}

func TestQuizAttempts_CompletionBonus(t *testing.T) {
	f := newFixture(t, app.Options{CompletionBonusXP: 30})
	c, quizzes := f.course(1)
	f.enroll(f.student.ID, c.ID)

	res := f.submit(f.student.ID, quizzes[0].ID, 100)

	assert.Equal(t, course.DefaultXPReward+30, res.XP)
	entries, err := f.app.Repos.Ledger.ListByUser(f.ctx, f.student.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	f.assertLedgerConsistent(f.student.ID)
}

func TestQuizAttempts_Rules(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(1)

	_, err := f.app.Commands.SubmitQuizAttempt.Handle(f.ctx, command.SubmitQuizAttemptCommand{UserID: f.student.ID, QuizID: quizzes[0].ID, Score: 90})
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)

	f.enroll(f.student.ID, c.ID)

	_, err = f.app.Commands.SubmitQuizAttempt.Handle(f.ctx, command.SubmitQuizAttemptCommand{UserID: f.student.ID, QuizID: quizzes[0].ID, Score: 120})
	assert.True(t, shared.IsValidation(err))

	for i := 0; i < course.DefaultMaxAttempts; i++ {
		res := f.submit(f.student.ID, quizzes[0].ID, 10)
		assert.False(t, res.Attempt.Passed)
	}
	_, err = f.app.Commands.SubmitQuizAttempt.Handle(f.ctx, command.SubmitQuizAttemptCommand{UserID: f.student.ID, QuizID: quizzes[0].ID, Score: 90})
	assert.ErrorIs(t, err, shared.ErrMaxAttemptsReached)
	f.assertLedgerConsistent(f.student.ID)
}

func TestEnrollment_DuplicateAndLevelGate(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, _ := f.course(0)
	f.enroll(f.student.ID, c.ID)

	_, err := f.app.Commands.EnrollInCourse.Handle(f.ctx, command.EnrollInCourseCommand{UserID: f.student.ID, CourseID: c.ID})
	assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)

	hard, err := f.app.Commands.Content.CreateCourse(f.ctx, command.CreateCourseCommand{
		ActorID: f.admin.ID, Title: "Advanced", LevelRequired: 5, Active: true,
	})
	require.NoError(t, err)
	_, err = f.app.Commands.EnrollInCourse.Handle(f.ctx, command.EnrollInCourseCommand{UserID: f.student.ID, CourseID: hard.ID})
	assert.ErrorIs(t, err, shared.ErrLevelTooLow)

	p, err := f.app.Repos.Progress.Get(f.ctx, f.student.ID, c.ID)
	require.NoError(t, err)
	assert.Zero(t, p.StreakDays, "enrollment does not touch the streak")
}

func TestContent_FanOutAndPermissions(t *testing.T) {
	f := newFixture(t, app.Options{})

	_, err := f.app.Commands.Content.CreateCourse(f.ctx, command.CreateCourseCommand{
		ActorID: f.student.ID, Title: "Nope", LevelRequired: 1, Active: true,
	})
	assert.True(t, shared.IsForbidden(err))

	c, _ := f.course(0)
	assert.Equal(t, 1, f.stored(f.student.ID, notification.TypeNewCourse))
	assert.Equal(t, 1, f.stored(f.moderator.ID, notification.TypeNewCourse))

	// No enrolled users: the quiz fan-out creates nothing.
	before := len(f.notes.All())
	_, err = f.app.Commands.Content.CreateQuiz(f.ctx, command.CreateQuizCommand{ActorID: f.admin.ID, CourseID: c.ID, Title: "Q", Active: true})
	require.NoError(t, err)
	assert.Len(t, f.notes.All(), before)

	f.enroll(f.student.ID, c.ID)
	_, err = f.app.Commands.Content.CreateQuiz(f.ctx, command.CreateQuizCommand{ActorID: f.admin.ID, CourseID: c.ID, Title: "Q2", Active: true})
	require.NoError(t, err)
	assert.Equal(t, 1, f.stored(f.student.ID, notification.TypeNewQuiz))

	p, err := f.app.Repos.Progress.Get(f.ctx, f.student.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalQuizzes, "new quizzes refresh enrolled users' progress")
}

func TestNotifyMany_EmptyListIsNoop(t *testing.T) {
	f := newFixture(t, app.Options{})
	before := len(f.notes.All())
	sent := f.publisher.total()

	n, err := f.app.Dispatcher.NotifyMany(f.ctx, nil, notification.Draft{Type: notification.TypeSystem, Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notes.All(), before)
	assert.Equal(t, sent, f.publisher.total())
}

func TestRecompute_IsIdempotent(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(2)
	f.enroll(f.student.ID, c.ID)
	f.submit(f.student.ID, quizzes[0].ID, 100)

	first, err := f.app.Courses.Recompute(f.ctx, f.student.ID, c.ID)
	require.NoError(t, err)
	second, err := f.app.Courses.Recompute(f.ctx, f.student.ID, c.ID)
	require.NoError(t, err)

	assert.False(t, second.Outcome.Changed)
	assert.Equal(t, first.Progress.Percentage, second.Progress.Percentage)
	assert.Equal(t, first.Progress.UpdatedAt, second.Progress.UpdatedAt)

	g1, err := f.app.Globals.Recompute(f.ctx, f.student.ID)
	require.NoError(t, err)
	g2, err := f.app.Globals.Recompute(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, g1, g2)
}

func TestCascadeFailure_RollsBackAndNeverPushes(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(1)
	f.enroll(f.student.ID, c.ID)

	boom := errors.New("downstream failure")
	require.NoError(t, f.app.Bus.Subscribe(shared.EventQuizAttemptRecorded, func(context.Context, shared.Event) error {
		return boom
	}))

	notesBefore := len(f.notes.All())
	pushesBefore := f.publisher.total()

	_, err := f.app.Commands.SubmitQuizAttempt.Handle(f.ctx, command.SubmitQuizAttemptCommand{UserID: f.student.ID, QuizID: quizzes[0].ID, Score: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	u, err := f.app.Repos.Users.GetByID(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, u.XP)

	history, err := f.app.Repos.Attempts.History(f.ctx, f.student.ID, quizzes[0].ID)
	require.NoError(t, err)
	assert.Zero(t, history.Count)

	assert.Len(t, f.notes.All(), notesBefore)
	assert.Equal(t, pushesBefore, f.publisher.total())
	f.assertLedgerConsistent(f.student.ID)
}

func TestModeratorAppointment_NotifiesAdmins(t *testing.T) {
	f := newFixture(t, app.Options{})
	assert.Equal(t, 1, f.stored(f.admin.ID, notification.TypeNewModerator))

	_, err := f.app.Commands.Users.ChangeRole(f.ctx, command.ChangeRoleCommand{ActorID: f.moderator.ID, UserID: f.student.ID, Role: "moderator"})
	assert.True(t, shared.IsForbidden(err))

	_, err = f.app.Commands.Users.ChangeRole(f.ctx, command.ChangeRoleCommand{ActorID: f.admin.ID, UserID: f.student.ID, Role: "moderator"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.stored(f.admin.ID, notification.TypeNewModerator))
	assert.Zero(t, f.stored(f.student.ID, notification.TypeNewModerator))
}

func TestMarkRead_PushesUnreadCount(t *testing.T) {
	f := newFixture(t, app.Options{})
	_, err := f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 100, Source: xp.SourceSystemBonus})
	require.NoError(t, err)

	list, err := f.app.Queries.Notifications.List(f.ctx, queryUnread(f.student.ID))
	require.NoError(t, err)
	require.NotEmpty(t, list.Notifications)

	changed, err := f.app.Commands.Notifications.MarkRead(f.ctx, command.MarkNotificationReadCommand{
		UserID: f.student.ID, NotificationID: list.Notifications[0].ID,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, f.publisher.count(f.student.ID, notification.MessageUnreadCount))

	changed, err = f.app.Commands.Notifications.MarkRead(f.ctx, command.MarkNotificationReadCommand{
		UserID: f.student.ID, NotificationID: list.Notifications[0].ID,
	})
	require.NoError(t, err)
	assert.False(t, changed)

	n, err := f.app.Commands.Notifications.MarkAllRead(f.ctx, command.MarkAllNotificationsReadCommand{UserID: f.student.ID})
	require.NoError(t, err)
	assert.Equal(t, list.UnreadCount-1, n)

	count, err := f.app.Queries.Notifications.UnreadCount(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStatsOverview(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(2)
	f.enroll(f.student.ID, c.ID)
	f.submit(f.student.ID, quizzes[0].ID, 80)

	dto, err := f.app.Queries.StatsOverview.Handle(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, course.DefaultXPReward, dto.XP)
	assert.Equal(t, course.DefaultXPReward, dto.WeeklyXP)
	assert.Equal(t, 1, dto.Level)
	require.NotNil(t, dto.NextLevelXP)
	assert.Equal(t, 100, *dto.NextLevelXP)
	assert.InDelta(t, 50.0, dto.ProgressToNextLevel, 0.001)
	require.NotNil(t, dto.Statistics)
	assert.Equal(t, 1, dto.Statistics.QuizzesPassed)
	assert.Equal(t, 1, dto.Statistics.CoursesStarted)
}

func TestReconcile_RepairsDrift(t *testing.T) {
	f := newFixture(t, app.Options{})
	_, err := f.app.Ledger.Grant(f.ctx, xp.Grant{UserID: f.student.ID, Amount: 100, Source: xp.SourceSystemBonus})
	require.NoError(t, err)

	fixed, err := f.app.Ledger.Reconcile(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.False(t, fixed)

	require.NoError(t, f.app.Repos.Users.UpdateProgression(f.ctx, f.student.ID, 0, 1))
	fixed, err = f.app.Ledger.Reconcile(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.True(t, fixed)
	f.assertLedgerConsistent(f.student.ID)
}

func TestWorkerJobs_RunAgainstMemoryStore(t *testing.T) {
	f := newFixture(t, app.Options{})
	c, quizzes := f.course(1)
	f.enroll(f.student.ID, c.ID)
	f.submit(f.student.ID, quizzes[0].ID, 100)
	require.NoError(t, f.app.Repos.Users.UpdateProgression(f.ctx, f.student.ID, 7, 1))

	recompute := jobs.NewRecomputeStatisticsJob(f.app.Repos.Users, f.app.Ledger, f.app.Stats,
		jobs.RecomputeStatisticsConfig{PageSize: 2}, nil)
	require.NoError(t, recompute.Run(f.ctx))

	last := recompute.LastStats()
	require.NotNil(t, last)
	assert.Equal(t, 3, last.UsersScanned)
	assert.Equal(t, 1, last.LedgerFixes)
	assert.Equal(t, 3, last.StatsRecomputed)
	f.assertLedgerConsistent(f.student.ID)

	snap, err := f.app.Stats.TakeSnapshot(f.ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.TotalUsers)
	assert.Equal(t, 1, snap.TotalEnrollments)
	assert.Equal(t, 1, snap.Completions)
}
