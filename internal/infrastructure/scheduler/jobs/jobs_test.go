package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

type fakeUsers struct{ ids []string }

func (f fakeUsers) ListIDs(_ context.Context, limit, offset int) ([]string, error) {
	if offset >= len(f.ids) {
		return nil, nil
	}
	end := min(offset+limit, len(f.ids))
	return f.ids[offset:end], nil
}

type fakeLedger struct {
	drifted map[string]bool
	failing map[string]bool
	seen    []string
}

func (f *fakeLedger) Reconcile(_ context.Context, userID string) (bool, error) {
	f.seen = append(f.seen, userID)
	if f.failing[userID] {
		return false, errors.New("db down")
	}
	return f.drifted[userID], nil
}

type fakeStats struct {
	pageSize int
	n        int
}

func (f *fakeStats) RecomputeAll(_ context.Context, pageSize int) (int, error) {
	f.pageSize = pageSize
	return f.n, nil
}

func TestRecomputeStatisticsJob(t *testing.T) {
	ledger := &fakeLedger{
		drifted: map[string]bool{"u2": true},
		failing: map[string]bool{"u4": true},
	}
	stats := &fakeStats{n: 5}
	job := NewRecomputeStatisticsJob(
		fakeUsers{ids: []string{"u1", "u2", "u3", "u4", "u5"}},
		ledger, stats,
		RecomputeStatisticsConfig{PageSize: 2},
		nil,
	)

	assert.Nil(t, job.LastStats())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"u1", "u2", "u3", "u4", "u5"}, ledger.seen)
	assert.Equal(t, 2, stats.pageSize)

	last := job.LastStats()
	require.NotNil(t, last)
	assert.Equal(t, 5, last.UsersScanned)
	assert.Equal(t, 1, last.LedgerFixes)
	assert.Equal(t, 1, last.LedgerFailures)
	assert.Equal(t, 5, last.StatsRecomputed)
}

type fakeSnapshots struct{ at time.Time }

func (f *fakeSnapshots) TakeSnapshot(_ context.Context, at time.Time) (*progress.PlatformSnapshot, error) {
	f.at = at
	return &progress.PlatformSnapshot{Date: at}, nil
}

func TestPlatformSnapshotJob_TakesYesterday(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)
	snaps := &fakeSnapshots{}
	job := NewPlatformSnapshotJob(snaps, timeutil.FixedClock{T: now}, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2026, 3, 9, 0, 5, 0, 0, time.UTC), snaps.at)
	assert.Equal(t, "platform_snapshot", job.Name())
}
