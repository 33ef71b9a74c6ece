package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Description() string           { return "test job " + j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	unlocked []string
	err      error
}

func (l *fakeLocker) TryLock(_ context.Context, name string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	l.unlocked = append(l.unlocked, name)
	return nil
}

func TestRegister_Validation(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := funcJob{name: "nightly", fn: func(context.Context) error { return nil }}

	assert.ErrorIs(t, s.Register(nil, "@daily"), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, "not a spec"), ErrInvalidSpec)
	require.NoError(t, s.Register(job, "30 2 * * *"))
	assert.ErrorIs(t, s.Register(job, "@daily"), ErrJobAlreadyExists)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "30 2 * * *", jobs[0].Schedule)
}

func TestRunNow_RecordsResults(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	boom := errors.New("boom")
	require.NoError(t, s.Register(funcJob{name: "ok", fn: func(context.Context) error { return nil }}, "@daily"))
	require.NoError(t, s.Register(funcJob{name: "fails", fn: func(context.Context) error { return boom }}, "@daily"))
	require.NoError(t, s.Register(funcJob{name: "panics", fn: func(context.Context) error { panic("oops") }}, "@daily"))

	var completed []string
	s.OnJobComplete(func(r JobResult) { completed = append(completed, r.JobName) })

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = s.RunNow(context.Background(), "fails")
	assert.ErrorIs(t, err, boom)

	_, err = s.RunNow(context.Background(), "panics")
	assert.ErrorContains(t, err, "panicked")

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.Equal(t, []string{"ok", "fails", "panics"}, completed)
	assert.Len(t, s.GetHistory(0), 3)
	assert.Len(t, s.GetHistory(1), 1)

	snap := s.GetMetrics().Snapshot()
	assert.EqualValues(t, 3, snap.TotalExecutions)
	assert.EqualValues(t, 2, snap.TotalFailures)
}

func TestRunNow_SkipsWhenLockHeld(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"nightly": true}}
	cfg := DefaultSchedulerConfig()
	cfg.Locker = locker
	s := NewScheduler(cfg)

	runs := 0
	require.NoError(t, s.Register(funcJob{name: "nightly", fn: func(context.Context) error { runs++; return nil }}, "@daily"))

	res, err := s.RunNow(context.Background(), "nightly")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, runs)

	require.NoError(t, locker.Unlock(context.Background(), "nightly"))
	res, err = s.RunNow(context.Background(), "nightly")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, runs)
	assert.Equal(t, []string{"nightly", "nightly"}, locker.unlocked)
}

func TestRunNow_LockErrorRunsUnguarded(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.Locker = &fakeLocker{held: map[string]bool{}, err: errors.New("redis down")}
	s := NewScheduler(cfg)

	runs := 0
	require.NoError(t, s.Register(funcJob{name: "nightly", fn: func(context.Context) error { runs++; return nil }}, "@daily"))
	_, err := s.RunNow(context.Background(), "nightly")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}
