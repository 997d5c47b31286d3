package judge

import (
	"sort"
	"time"
)

// Grade is the timing quality of an answer relative to the window center.
type Grade string

const (
	Perfect Grade = "perfect"
	Great   Grade = "great"
	Good    Grade = "good"
	Miss    Grade = "miss"
)

// Timing windows, as absolute distance from the answer-window center.
const (
	PerfectWindow = 80 * time.Millisecond
	GreatWindow   = 160 * time.Millisecond
	GoodWindow    = 240 * time.Millisecond
)

// TimingGrade grades the offset between an answer and the window center.
func TimingGrade(delta time.Duration) Grade {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= PerfectWindow:
		return Perfect
	case delta <= GreatWindow:
		return Great
	case delta <= GoodWindow:
		return Good
	}
	return Miss
}

// Score combines timing and correctness into a per-answer score.
func Score(g Grade, correct bool) int {
	if !correct {
		return 0
	}
	switch g {
	case Perfect:
		return 100
	case Great:
		return 80
	case Good:
		return 50
	}
	return 0
}

// Tier is a combo bonus awarded once maxStreak reaches MinStreak.
type Tier struct {
	MinStreak int
	Bonus     int
}

// PointRule awards PerCorrect for each correct answer plus the single highest
// tier bonus reached by the session's max streak.
type PointRule struct {
	PerCorrect int
	Tiers      []Tier
}

// DefaultPoints is the product's point table.
var DefaultPoints = PointRule{
	PerCorrect: 10,
	Tiers: []Tier{
		{MinStreak: 2, Bonus: 10},
		{MinStreak: 4, Bonus: 30},
		{MinStreak: 5, Bonus: 50},
	},
}

// Bonus returns the bonus for maxStreak. Tiers do not accumulate.
func (r PointRule) Bonus(maxStreak int) int {
	tiers := append([]Tier(nil), r.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinStreak > tiers[j].MinStreak })
	for _, t := range tiers {
		if maxStreak >= t.MinStreak {
			return t.Bonus
		}
	}
	return 0
}

// Earned returns the points for a finished session.
func (r PointRule) Earned(correct, maxStreak int) int {
	return r.PerCorrect*correct + r.Bonus(maxStreak)
}
