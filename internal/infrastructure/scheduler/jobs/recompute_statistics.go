// Package jobs contains the worker's scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE STATISTICS JOB
// ══════════════════════════════════════════════════════════════════════════════

// UserLister pages through user ids.
type UserLister interface {
	ListIDs(ctx context.Context, limit, offset int) ([]string, error)
}

// LedgerReconciler rewrites a user's XP from the ledger sum.
type LedgerReconciler interface {
	Reconcile(ctx context.Context, userID string) (bool, error)
}

// StatisticsRecomputer rebuilds every user's statistics row.
type StatisticsRecomputer interface {
	RecomputeAll(ctx context.Context, pageSize int) (int, error)
}

// RecomputeStatisticsJob first repairs any drift between users.xp and the
// ledger, then recomputes global progress and statistics for every user.
type RecomputeStatisticsJob struct {
	users  UserLister
	ledger LedgerReconciler
	stats  StatisticsRecomputer
	config RecomputeStatisticsConfig
	logger *logger.Logger

	lastStats atomic.Pointer[RecomputeStats]
}

// RecomputeStatisticsConfig tunes the job.
type RecomputeStatisticsConfig struct {
	PageSize int

	// Timeout is the maximum duration of one run.
	Timeout time.Duration
}

// DefaultRecomputeStatisticsConfig returns sensible defaults.
func DefaultRecomputeStatisticsConfig() RecomputeStatisticsConfig {
	return RecomputeStatisticsConfig{
		PageSize: 500,
		Timeout:  30 * time.Minute,
	}
}

// RecomputeStats summarizes one run.
type RecomputeStats struct {
	StartedAt       time.Time
	Duration        time.Duration
	UsersScanned    int
	LedgerFixes     int
	LedgerFailures  int
	StatsRecomputed int
}

// NewRecomputeStatisticsJob creates the job.
func NewRecomputeStatisticsJob(
	users UserLister,
	ledger LedgerReconciler,
	stats StatisticsRecomputer,
	config RecomputeStatisticsConfig,
	log *logger.Logger,
) *RecomputeStatisticsJob {
	if config.PageSize <= 0 {
		config.PageSize = 500
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RecomputeStatisticsJob{
		users:  users,
		ledger: ledger,
		stats:  stats,
		config: config,
		logger: log.With(logger.Component("job"), logger.String("job", "recompute_statistics")),
	}
}

// Name returns the job name.
func (j *RecomputeStatisticsJob) Name() string {
	return "recompute_statistics"
}

// Description returns a human-readable description.
func (j *RecomputeStatisticsJob) Description() string {
	return "Reconciles user XP with the ledger and recomputes progress statistics"
}

// Run executes the job.
func (j *RecomputeStatisticsJob) Run(ctx context.Context) error {
	stats := &RecomputeStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		j.lastStats.Store(stats)
	}()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	if err := j.reconcile(ctx, stats); err != nil {
		return err
	}

	n, err := j.stats.RecomputeAll(ctx, j.config.PageSize)
	stats.StatsRecomputed = n
	if err != nil {
		return fmt.Errorf("failed to recompute statistics: %w", err)
	}

	j.logger.Info("statistics recomputed",
		logger.Int("users", stats.UsersScanned),
		logger.Int("ledger_fixes", stats.LedgerFixes),
		logger.Int("ledger_failures", stats.LedgerFailures),
		logger.Int("recomputed", stats.StatsRecomputed),
	)
	return nil
}

func (j *RecomputeStatisticsJob) reconcile(ctx context.Context, stats *RecomputeStats) error {
	for offset := 0; ; offset += j.config.PageSize {
		ids, err := j.users.ListIDs(ctx, j.config.PageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.UsersScanned++
			fixed, err := j.ledger.Reconcile(ctx, id)
			if err != nil {
				stats.LedgerFailures++
				j.logger.Error("ledger reconcile failed", logger.UserID(id), logger.Err(err))
				continue
			}
			if fixed {
				stats.LedgerFixes++
				j.logger.Warn("user xp drifted from ledger, corrected", logger.UserID(id))
			}
		}
		if len(ids) < j.config.PageSize {
			return nil
		}
	}
}

// LastStats returns the summary of the latest run, nil before the first.
func (j *RecomputeStatisticsJob) LastStats() *RecomputeStats {
	return j.lastStats.Load()
}
