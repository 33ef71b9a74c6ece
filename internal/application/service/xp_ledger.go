// Package service contains the progression core: the XP ledger, the progress
// aggregators and the notification dispatcher. Services are called from
// command handlers and event handlers inside one unit of work.
package service

import (
	"context"
	"fmt"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/level"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// XPLedger is the only writer of user XP and level.
type XPLedger struct {
	tx     shared.TxManager
	users  user.Repository
	ledger xp.Repository
	calc   *level.Calculator
	events shared.EventPublisher
	clock  timeutil.Clock
	logger *logger.Logger
}

// NewXPLedger creates the ledger service.
func NewXPLedger(
	tx shared.TxManager,
	users user.Repository,
	ledger xp.Repository,
	calc *level.Calculator,
	events shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *XPLedger {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &XPLedger{
		tx:     tx,
		users:  users,
		ledger: ledger,
		calc:   calc,
		events: events,
		clock:  clock,
		logger: log.With(logger.Component("xp_ledger")),
	}
}

// GrantResult describes a committed grant.
type GrantResult struct {
	Entry    *xp.Entry
	OldTotal int
	NewTotal int
	Level    level.Change
}

// Grant appends a ledger entry and moves the user's XP and level in the same
// unit of work, then publishes XPGranted and, on any level difference,
// LevelChanged. Non-positive amounts are rejected without touching state.
func (l *XPLedger) Grant(ctx context.Context, g xp.Grant) (*GrantResult, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	var result *GrantResult
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := l.users.GetForUpdate(ctx, g.UserID)
		if err != nil {
			return err
		}

		entry, err := xp.NewEntry(g, l.clock.Now())
		if err != nil {
			return err
		}
		if err := l.ledger.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append xp entry: %w", err)
		}

		newTotal := u.XP + g.Amount
		change := l.calc.Compare(u.Level, newTotal)
		if err := l.users.UpdateProgression(ctx, u.ID, newTotal, change.New); err != nil {
			return fmt.Errorf("failed to update user progression: %w", err)
		}

		result = &GrantResult{Entry: entry, OldTotal: u.XP, NewTotal: newTotal, Level: change}

		if err := l.events.Publish(ctx, shared.NewXPGrantedEvent(entry.ID, u.ID, g.Amount, u.XP, newTotal, string(g.Source))); err != nil {
			return err
		}
		if change.Changed() {
			if err := l.events.Publish(ctx, shared.NewLevelChangedEvent(u.ID, change.Old, change.New, newTotal)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("xp granted",
		logger.UserID(g.UserID),
		logger.XPAmount(g.Amount),
		logger.String("source", string(g.Source)),
		logger.Int("new_total", result.NewTotal),
		logger.UserLevel(result.Level.New),
	)
	return result, nil
}

// Reconcile rewrites the user's XP from the ledger sum and re-derives the
// level. A decrease is applied silently; an increase publishes LevelChanged.
// It reports whether anything was corrected.
func (l *XPLedger) Reconcile(ctx context.Context, userID string) (bool, error) {
	var corrected bool
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := l.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		sum, err := l.ledger.SumByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to sum ledger: %w", err)
		}
		change := l.calc.Compare(u.Level, sum)
		if sum == u.XP && !change.Changed() {
			return nil
		}

		corrected = true
		l.logger.Warn("xp drift corrected",
			logger.UserID(userID),
			logger.Int("stored_xp", u.XP),
			logger.Int("ledger_xp", sum),
		)
		if err := l.users.UpdateProgression(ctx, userID, sum, change.New); err != nil {
			return fmt.Errorf("failed to update user progression: %w", err)
		}
		if change.Changed() {
			return l.events.Publish(ctx, shared.NewLevelChangedEvent(userID, change.Old, change.New, sum))
		}
		return nil
	})
	return corrected, err
}
