// Package level maps cumulative XP onto levels through an ascending threshold table.
package level

import (
	"fmt"
	"sort"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// DefaultThresholds is the XP needed to reach level i+1.
var DefaultThresholds = []int{0, 100, 250, 500, 1000, 2000, 4000, 8000}

// Calculator is a pure XP -> level mapping. It is safe for concurrent use.
type Calculator struct {
	thresholds []int
}

// NewCalculator validates the table: it must start at 0 and be strictly ascending.
func NewCalculator(thresholds []int) (*Calculator, error) {
	if len(thresholds) == 0 {
		return nil, shared.NewDomainError("level", "NewCalculator", shared.ErrValidation, "threshold table is empty")
	}
	if thresholds[0] != 0 {
		return nil, shared.NewDomainError("level", "NewCalculator", shared.ErrValidation, "first threshold must be 0")
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return nil, shared.NewDomainError("level", "NewCalculator", shared.ErrValidation,
				fmt.Sprintf("threshold %d (%d) is not above %d", i, thresholds[i], thresholds[i-1]))
		}
	}
	t := make([]int, len(thresholds))
	copy(t, thresholds)
	return &Calculator{thresholds: t}, nil
}

// MustCalculator panics on an invalid table. Intended for package-level defaults and tests.
func MustCalculator(thresholds []int) *Calculator {
	c, err := NewCalculator(thresholds)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns a calculator over DefaultThresholds.
func Default() *Calculator {
	return MustCalculator(DefaultThresholds)
}

// MaxLevel is the highest reachable level.
func (c *Calculator) MaxLevel() int {
	return len(c.thresholds)
}

// LevelFor returns the highest level i with xp >= thresholds[i-1]. Negative XP maps to 1.
func (c *Calculator) LevelFor(xp int) int {
	// first index whose threshold is above xp
	i := sort.Search(len(c.thresholds), func(i int) bool { return c.thresholds[i] > xp })
	if i < 1 {
		return 1
	}
	return i
}

// ThresholdFor returns the XP at which level starts.
func (c *Calculator) ThresholdFor(level int) int {
	if level <= 1 {
		return 0
	}
	if level > len(c.thresholds) {
		level = len(c.thresholds)
	}
	return c.thresholds[level-1]
}

// NextLevelXP returns the XP needed for the level after the one xp maps to.
// ok is false at the top level.
func (c *Calculator) NextLevelXP(xp int) (next int, ok bool) {
	lvl := c.LevelFor(xp)
	if lvl >= len(c.thresholds) {
		return 0, false
	}
	return c.thresholds[lvl], true
}

// ProgressToNext returns how far xp is between the current and next
// threshold, as a percentage in [0, 100]. The top level reports 100.
func (c *Calculator) ProgressToNext(xp int) float64 {
	next, ok := c.NextLevelXP(xp)
	if !ok {
		return 100
	}
	base := c.ThresholdFor(c.LevelFor(xp))
	if xp < base {
		return 0
	}
	return float64(xp-base) / float64(next-base) * 100
}

// Change captures the level before and after an XP mutation. Callers take
// Old themselves before mutating, so no per-process cache is involved.
type Change struct {
	Old int
	New int
}

// Compare evaluates xp against the stored level.
func (c *Calculator) Compare(storedLevel, xp int) Change {
	return Change{Old: storedLevel, New: c.LevelFor(xp)}
}

// Changed reports any difference.
func (ch Change) Changed() bool { return ch.Old != ch.New }

// IsUp reports a strict increase.
func (ch Change) IsUp() bool { return ch.New > ch.Old }
