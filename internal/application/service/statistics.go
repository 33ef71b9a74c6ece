package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS AGGREGATOR
// ══════════════════════════════════════════════════════════════════════════════

// StatisticsAggregator derives UserStatistic rows and daily platform snapshots.
type StatisticsAggregator struct {
	tx          shared.TxManager
	users       user.Repository
	attempts    course.AttemptRepository
	enrollments course.EnrollmentRepository
	ledger      xp.Repository
	globals     *GlobalProgressAggregator
	stats       progress.StatisticRepository
	snapshots   progress.SnapshotRepository
	clock       timeutil.Clock
	location    *time.Location
	logger      *logger.Logger
}

// StatisticsDeps groups the aggregator's collaborators.
type StatisticsDeps struct {
	Tx          shared.TxManager
	Users       user.Repository
	Attempts    course.AttemptRepository
	Enrollments course.EnrollmentRepository
	Ledger      xp.Repository
	Globals     *GlobalProgressAggregator
	Stats       progress.StatisticRepository
	Snapshots   progress.SnapshotRepository
	Clock       timeutil.Clock
	Location    *time.Location
	Logger      *logger.Logger
}

// NewStatisticsAggregator creates the aggregator.
func NewStatisticsAggregator(d StatisticsDeps) *StatisticsAggregator {
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &StatisticsAggregator{
		tx:          d.Tx,
		users:       d.Users,
		attempts:    d.Attempts,
		enrollments: d.Enrollments,
		ledger:      d.Ledger,
		globals:     d.Globals,
		stats:       d.Stats,
		snapshots:   d.Snapshots,
		clock:       d.Clock,
		location:    d.Location,
		logger:      d.Logger.With(logger.Component("statistics")),
	}
}

// Recompute rebuilds the user's statistic row, refreshing global progress first.
func (a *StatisticsAggregator) Recompute(ctx context.Context, userID string) (*progress.UserStatistic, error) {
	var result *progress.UserStatistic
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		global, err := a.globals.Recompute(ctx, userID)
		if err != nil {
			return err
		}
		attempts, err := a.attempts.StatsByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to aggregate attempts: %w", err)
		}
		total, err := a.ledger.SumByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to sum ledger: %w", err)
		}
		days, err := a.ledger.CountActiveDays(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to count active days: %w", err)
		}

		result = progress.ComputeStatistic(userID, progress.StatisticInputs{
			Attempted:    attempts.Attempted,
			Passed:       attempts.Passed,
			AverageScore: attempts.AverageScore,
			LedgerXP:     total,
			ActiveDays:   days,
			Global:       global,
		}, a.clock.Now())

		if err := a.stats.Upsert(ctx, result); err != nil {
			return fmt.Errorf("failed to save statistics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecomputeAll walks every user in pages and recomputes their statistics.
// Failures are logged per user; the count of successful recomputes is returned.
func (a *StatisticsAggregator) RecomputeAll(ctx context.Context, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	done := 0
	for offset := 0; ; offset += pageSize {
		ids, err := a.users.ListIDs(ctx, pageSize, offset)
		if err != nil {
			return done, fmt.Errorf("failed to list users: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return done, err
			}
			if _, err := a.Recompute(ctx, id); err != nil {
				a.logger.Error("statistics recompute failed", logger.UserID(id), logger.Err(err))
				continue
			}
			done++
		}
		if len(ids) < pageSize {
			return done, nil
		}
	}
}

// TakeSnapshot stores the platform figures for the calendar day containing at.
func (a *StatisticsAggregator) TakeSnapshot(ctx context.Context, at time.Time) (*progress.PlatformSnapshot, error) {
	from := timeutil.StartOfDay(at, a.location)
	to := from.AddDate(0, 0, 1)

	totalUsers, err := a.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	newUsers, err := a.users.CountCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}
	active, err := a.ledger.CountActiveUsersBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}
	enrollments, err := a.enrollments.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	completions, err := a.enrollments.CountCompletedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}
	granted, err := a.ledger.SumBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum xp: %w", err)
	}

	snap := &progress.PlatformSnapshot{
		Date:             timeutil.CalendarDate(at, a.location),
		TotalUsers:       totalUsers,
		NewUsers:         newUsers,
		ActiveUsers:      active,
		TotalEnrollments: enrollments,
		Completions:      completions,
		XPGranted:        granted,
		CreatedAt:        a.clock.Now(),
	}
	if err := a.snapshots.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	a.logger.Info("platform snapshot stored",
		logger.Time("date", snap.Date),
		logger.Int("total_users", totalUsers),
		logger.Int("active_users", active),
	)
	return snap, nil
}
