package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/level"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS OVERVIEW QUERY
// The dashboard view of a user: XP, level, weekly XP, global progress and
// statistics. Cached briefly; the cascade drops the entry after every commit.
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyWindow is how far back weekly XP looks.
const WeeklyWindow = 7 * 24 * time.Hour

// StatsOverviewDTO is the dashboard payload.
type StatsOverviewDTO struct {
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`

	// NextLevelXP is nil at the top level.
	NextLevelXP *int `json:"next_level_xp"`

	// ProgressToNextLevel is a percentage in [0, 100].
	ProgressToNextLevel float64 `json:"progress_to_next_level"`

	WeeklyXP   int                      `json:"weekly_xp"`
	Global     *progress.GlobalProgress `json:"global_progress,omitempty"`
	Statistics *progress.UserStatistic  `json:"statistics,omitempty"`
}

// OverviewCache stores rendered overviews. A miss is (nil, false, nil).
type OverviewCache interface {
	GetOverview(ctx context.Context, userID string) (*StatsOverviewDTO, bool, error)
	SetOverview(ctx context.Context, userID string, dto *StatsOverviewDTO) error
}

// StatsOverviewHandler builds the overview.
type StatsOverviewHandler struct {
	users   user.Repository
	ledger  xp.Repository
	globals progress.GlobalProgressRepository
	stats   progress.StatisticRepository
	calc    *level.Calculator
	cache   OverviewCache
	clock   timeutil.Clock
	logger  *logger.Logger
}

// NewStatsOverviewHandler creates the handler. cache may be nil.
func NewStatsOverviewHandler(
	users user.Repository,
	ledger xp.Repository,
	globals progress.GlobalProgressRepository,
	stats progress.StatisticRepository,
	calc *level.Calculator,
	cache OverviewCache,
	clock timeutil.Clock,
	log *logger.Logger,
) *StatsOverviewHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StatsOverviewHandler{
		users:   users,
		ledger:  ledger,
		globals: globals,
		stats:   stats,
		calc:    calc,
		cache:   cache,
		clock:   clock,
		logger:  log.With(logger.String("handler", "stats_overview")),
	}
}

// Handle returns the overview of userID.
func (h *StatsOverviewHandler) Handle(ctx context.Context, userID string) (*StatsOverviewDTO, error) {
	if userID == "" {
		return nil, errors.New("user_id is required")
	}

	if h.cache != nil {
		dto, ok, err := h.cache.GetOverview(ctx, userID)
		if err != nil {
			h.logger.Warn("overview cache read failed", logger.UserID(userID), logger.Err(err))
		} else if ok {
			return dto, nil
		}
	}

	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	weekly, err := h.ledger.SumByUserSince(ctx, userID, h.clock.Now().Add(-WeeklyWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to sum weekly xp: %w", err)
	}

	dto := &StatsOverviewDTO{
		UserID:              u.ID,
		XP:                  u.XP,
		Level:               u.Level,
		ProgressToNextLevel: h.calc.ProgressToNext(u.XP),
		WeeklyXP:            weekly,
	}
	if next, ok := h.calc.NextLevelXP(u.XP); ok {
		dto.NextLevelXP = &next
	}

	if dto.Global, err = h.globals.Get(ctx, userID); err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load global progress: %w", err)
	}
	if dto.Statistics, err = h.stats.Get(ctx, userID); err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.SetOverview(ctx, userID, dto); err != nil {
			h.logger.Warn("overview cache write failed", logger.UserID(userID), logger.Err(err))
		}
	}
	return dto, nil
}
