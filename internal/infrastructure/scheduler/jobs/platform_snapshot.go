package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// SnapshotTaker stores the platform figures of one calendar day.
type SnapshotTaker interface {
	TakeSnapshot(ctx context.Context, at time.Time) (*progress.PlatformSnapshot, error)
}

// PlatformSnapshotJob records the previous day's platform snapshot. It is
// meant to fire shortly after midnight, so "today" figures cover a whole day.
type PlatformSnapshotJob struct {
	snapshots SnapshotTaker
	clock     timeutil.Clock
	logger    *logger.Logger
}

// NewPlatformSnapshotJob creates the job.
func NewPlatformSnapshotJob(snapshots SnapshotTaker, clock timeutil.Clock, log *logger.Logger) *PlatformSnapshotJob {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PlatformSnapshotJob{
		snapshots: snapshots,
		clock:     clock,
		logger:    log.With(logger.Component("job"), logger.String("job", "platform_snapshot")),
	}
}

// Name returns the job name.
func (j *PlatformSnapshotJob) Name() string {
	return "platform_snapshot"
}

// Description returns a human-readable description.
func (j *PlatformSnapshotJob) Description() string {
	return "Stores yesterday's platform-wide user, enrollment and XP figures"
}

// Run executes the job. Re-running it for the same day overwrites the row.
func (j *PlatformSnapshotJob) Run(ctx context.Context) error {
	day := j.clock.Now().AddDate(0, 0, -1)
	snap, err := j.snapshots.TakeSnapshot(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to take snapshot: %w", err)
	}
	j.logger.Info("snapshot job finished",
		logger.Time("date", snap.Date),
		logger.Int("new_users", snap.NewUsers),
		logger.Int("completions", snap.Completions),
	)
	return nil
}
