package notification

import "sort"

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONE RULES
// ══════════════════════════════════════════════════════════════════════════════

// Milestones is an ascending set of thresholds.
type Milestones []int

// NewMilestones sorts and de-duplicates the input, dropping non-positive values.
func NewMilestones(values []int) Milestones {
	seen := make(map[int]struct{}, len(values))
	out := make(Milestones, 0, len(values))
	for _, v := range values {
		if v <= 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Crossed returns the milestones m with from < m <= to.
func (ms Milestones) Crossed(from, to int) []int {
	var out []int
	for _, m := range ms {
		if m > from && m <= to {
			out = append(out, m)
		}
	}
	return out
}

// Hit reports whether v is exactly a milestone.
func (ms Milestones) Hit(v int) bool {
	i := sort.SearchInts(ms, v)
	return i < len(ms) && ms[i] == v
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST FILTER
// ══════════════════════════════════════════════════════════════════════════════

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListFilter narrows an inbox listing. Results are newest first.
type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Normalize clamps limit and offset.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
