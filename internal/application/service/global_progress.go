package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// GlobalProgressAggregator rebuilds GlobalProgress wholesale from every
// CourseProgress row and the ledger. There is no incremental path.
type GlobalProgressAggregator struct {
	tx       shared.TxManager
	progress progress.CourseProgressRepository
	global   progress.GlobalProgressRepository
	ledger   xp.Repository
	clock    timeutil.Clock
	logger   *logger.Logger
}

// NewGlobalProgressAggregator creates the aggregator.
func NewGlobalProgressAggregator(
	tx shared.TxManager,
	courseProgress progress.CourseProgressRepository,
	global progress.GlobalProgressRepository,
	ledger xp.Repository,
	clock timeutil.Clock,
	log *logger.Logger,
) *GlobalProgressAggregator {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GlobalProgressAggregator{
		tx:       tx,
		progress: courseProgress,
		global:   global,
		ledger:   ledger,
		clock:    clock,
		logger:   log.With(logger.Component("global_progress")),
	}
}

// Recompute rebuilds and stores the user's global progress.
func (a *GlobalProgressAggregator) Recompute(ctx context.Context, userID string) (*progress.GlobalProgress, error) {
	var result *progress.GlobalProgress
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		rows, err := a.progress.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list course progress: %w", err)
		}
		total, err := a.ledger.SumByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to sum ledger: %w", err)
		}

		prev, err := a.global.Get(ctx, userID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load global progress: %w", err)
		}

		next := progress.ComputeGlobal(userID, rows, total, prev, a.clock.Now())
		if prev != nil && prev.SameFigures(next) {
			result = prev
			return nil
		}
		if err := a.global.Upsert(ctx, next); err != nil {
			return fmt.Errorf("failed to save global progress: %w", err)
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
