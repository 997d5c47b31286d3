// Package pet models the crab companion fed with quiz points.
package pet

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInsufficientPoints is returned when a feed costs more than the
	// balance.
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrUnknownFood        = errors.New("unknown food")
)

// State is the crab's progression. Affinity is in [0, 1); reaching 1 raises
// the level and carries the remainder over.
type State struct {
	Level    int
	Affinity float64
}

// Initial is the state of a new crab.
var Initial = State{Level: 1}

// Food is a feed item.
type Food struct {
	ID   string
	Name string
	Cost int
	Gain float64
}

// Menu lists the available food.
var Menu = []Food{
	{ID: "a", Name: "えび", Cost: 10, Gain: 0.06},
	{ID: "b", Name: "ホタテ", Cost: 18, Gain: 0.10},
	{ID: "c", Name: "カニかま", Cost: 6, Gain: 0.035},
}

// LookupFood finds a menu item by id or name.
func LookupFood(key string) (Food, error) {
	key = strings.TrimSpace(key)
	for _, f := range Menu {
		if f.ID == key || f.Name == key {
			return f, nil
		}
	}
	return Food{}, errors.Wrapf(ErrUnknownFood, "%q", key)
}

// Feed returns the state after eating f and the points it costs. balance
// is the points available.
func (s State) Feed(f Food, balance int) (State, int, error) {
	if f.Cost > balance {
		return s, 0, errors.Wrapf(ErrInsufficientPoints, "%s costs %d, balance %d", f.Name, f.Cost, balance)
	}
	if s.Level < 1 {
		s.Level = 1
	}
	a := s.Affinity + math.Max(f.Gain, 0)
	for a >= 1-1e-9 {
		s.Level++
		a--
	}
	// keep float drift out of the displayed percentage
	s.Affinity = math.Max(0, math.Round(a*1e6)/1e6)
	return s, f.Cost, nil
}

// Percent is the affinity as a whole percentage.
func (s State) Percent() int { return int(math.Round(s.Affinity * 100)) }

// Remain is the affinity points, out of 100, left until the next level.
func (s State) Remain() int {
	return int(math.Ceil((1-s.Affinity)*100 - 1e-9))
}

// Quip is a line the crab may say. Zero conditions always apply.
type Quip struct {
	Text string
	// MinLevel requires at least this level.
	MinLevel int
	// MaxRemain requires at most this many points to the next level.
	MaxRemain int
}

// Quips are the crab's lines. Archaic words are wrapped in <k></k>.
var Quips = []Quip{
	{Text: "今日もコツコツ〜"},
	{Text: "焦らず、一歩ずつ。"},
	{Text: "ちょっと息抜きも大事。"},
	{Text: "むりせず、でも手は止めない〜"},
	{Text: "小さな積み重ねが、おおきな力に！"},
	{Text: "次のレベル、見えてきた！", MaxRemain: 10},
	{Text: "あと少しで進化のとき…！", MaxRemain: 5},
	{Text: "調子いいね、このままいこう！", MinLevel: 2},
	{Text: "学ぶは楽しきかな、<k>をさをさ</k>見逃すな。", MinLevel: 3},
	{Text: "今日の気持ちは、<k>いと</k>よし！"},
	{Text: "みんなから<k>ののしられ</k>たいよ～！"},
}

// Applies reports whether q may be said in state s.
func (q Quip) Applies(s State) bool {
	if q.MinLevel > 0 && s.Level < q.MinLevel {
		return false
	}
	if q.MaxRemain > 0 && s.Remain() > q.MaxRemain {
		return false
	}
	return true
}

var kogoTags = strings.NewReplacer("<k>", "", "</k>", "")

// Plain returns the text without markup.
func (q Quip) Plain() string { return kogoTags.Replace(q.Text) }

// PickQuip picks an applicable quip. A nil r uses the global source.
func PickQuip(s State, r *rand.Rand) Quip {
	var ok []Quip
	for _, q := range Quips {
		if q.Applies(s) {
			ok = append(ok, q)
		}
	}
	if len(ok) == 0 {
		return Quips[0]
	}
	if r == nil {
		return ok[rand.IntN(len(ok))]
	}
	return ok[r.IntN(len(ok))]
}
