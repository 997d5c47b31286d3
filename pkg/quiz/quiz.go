// Package quiz builds question sets from a vocabulary pool, biased toward
// words the learner has recently missed.
package quiz

import (
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/vocab"
)

// ChoiceCount is the number of options in a multiple-choice question.
const ChoiceCount = 4

// DefaultAlpha scales miss weights into selection weights: 1 + alpha*miss.
const DefaultAlpha = 2.0

// Placeholder pads a question when the pool cannot supply enough distinct
// distractors. Questions carrying it report Padded > 0.
const Placeholder = "（なし）"

// Labels for binary nuance questions. Index 0 is always positive.
const (
	PositiveLabel = "ポジ"
	NegativeLabel = "ネガ"
)

// Returned by callers when a build yields nothing, so the two empty states
// can be told apart.
var (
	ErrNoQuestions   = errors.New("no questions available")
	ErrNoReviewItems = errors.New("no review items available")
)

// Kind distinguishes question layouts.
type Kind int

const (
	MultipleChoice Kind = iota
	Binary
)

// Question is one rendered question. It is built fresh per session.
type Question struct {
	VocabID    int64
	PromptWord string
	Reading    string
	Kind       Kind
	// Choices are distinct display strings. Choices[AnswerIndex] is correct.
	Choices     []string
	AnswerIndex int
	// ChoiceReadings is parallel to Choices; entries may be empty.
	ChoiceReadings []string
	// Padded counts placeholder distractors. Non-zero means bad pool data.
	Padded int
}

// Correct returns the correct choice text.
func (q Question) Correct() string {
	return q.Choices[q.AnswerIndex]
}

// Options tune a single build.
type Options struct {
	// ReviewOnly restricts targets to ids present in the miss weights.
	ReviewOnly bool
}

// EmptyError returns the error describing an empty build under opts.
func EmptyError(opts Options) error {
	if opts.ReviewOnly {
		return ErrNoReviewItems
	}
	return ErrNoQuestions
}

// Builder builds question sets. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	rng   *rand.Rand
	Alpha float64
	// Logger receives data-quality warnings. nil means no logging.
	Logger *log.Logger
}

// NewBuilder returns a builder seeded from the clock.
func NewBuilder() *Builder {
	now := uint64(time.Now().UnixNano())
	return NewSeededBuilder(now, now>>17)
}

// NewSeededBuilder returns a deterministic builder.
func NewSeededBuilder(seed1, seed2 uint64) *Builder {
	return &Builder{
		rng:   rand.New(rand.NewPCG(seed1, seed2)),
		Alpha: DefaultAlpha,
	}
}

// Build returns up to count multiple-choice questions drawn from pool. It
// returns fewer than count when the candidate pool is smaller, and an empty
// slice only when no candidate exists.
func (b *Builder) Build(pool []vocab.Entry, count int, weights vocab.MissWeights, opts Options) []Question {
	valid := vocab.Quizzable(pool)
	targets := b.pickTargets(candidates(valid, weights, opts), count, weights)
	if len(targets) == 0 {
		return nil
	}

	d := newDistractorSource(valid)
	out := make([]Question, 0, len(targets))
	for _, t := range targets {
		out = append(out, b.multipleChoice(t, d))
	}
	return out
}

// BuildNuance returns up to count binary questions asking whether a word is
// positive or negative. Entries without a polarity are never targets.
func (b *Builder) BuildNuance(pool []vocab.Entry, count int, weights vocab.MissWeights, opts Options) []Question {
	var polar []vocab.Entry
	for _, e := range vocab.Quizzable(pool) {
		if e.Nuance == vocab.NuancePositive || e.Nuance == vocab.NuanceNegative {
			polar = append(polar, e)
		}
	}
	targets := b.pickTargets(candidates(polar, weights, opts), count, weights)

	out := make([]Question, 0, len(targets))
	for _, t := range targets {
		answer := 0
		if t.Nuance == vocab.NuanceNegative {
			answer = 1
		}
		out = append(out, Question{
			VocabID:        t.ID,
			PromptWord:     t.Word,
			Reading:        t.Reading,
			Kind:           Binary,
			Choices:        []string{PositiveLabel, NegativeLabel},
			AnswerIndex:    answer,
			ChoiceReadings: []string{"ぽじ", "ねが"},
		})
	}
	return out
}

func candidates(valid []vocab.Entry, weights vocab.MissWeights, opts Options) []vocab.Entry {
	if !opts.ReviewOnly {
		return valid
	}
	var out []vocab.Entry
	for _, e := range valid {
		if weights.Has(e.ID) {
			out = append(out, e)
		}
	}
	return out
}

// pickTargets draws distinct entries by cumulative weight. Chosen ids drop
// out of the running total. Attempts are bounded by three times the pool
// size.
func (b *Builder) pickTargets(pool []vocab.Entry, count int, weights vocab.MissWeights) []vocab.Entry {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	alpha := b.Alpha
	if alpha < 0 {
		alpha = 0
	}
	w := make([]float64, len(pool))
	for i, e := range pool {
		w[i] = 1 + alpha*weights.Get(e.ID)
	}

	need := min(count, len(pool))
	seen := make(map[int64]bool, need)
	picked := make([]vocab.Entry, 0, need)
	for attempt := 0; len(picked) < need && attempt < 3*len(pool); attempt++ {
		i, ok := b.draw(pool, w, seen)
		if !ok {
			break
		}
		if seen[pool[i].ID] {
			continue
		}
		seen[pool[i].ID] = true
		picked = append(picked, pool[i])
	}
	return picked
}

func (b *Builder) draw(pool []vocab.Entry, w []float64, seen map[int64]bool) (int, bool) {
	total := 0.0
	last := -1
	for i, e := range pool {
		if seen[e.ID] {
			continue
		}
		total += w[i]
		last = i
	}
	if last < 0 || total <= 0 {
		return 0, false
	}
	r := b.rng.Float64() * total
	for i, e := range pool {
		if seen[e.ID] {
			continue
		}
		if r -= w[i]; r <= 0 {
			return i, true
		}
	}
	return last, true
}

type distractor struct {
	text    string
	reading string
}

type distractorSource struct {
	valid    []vocab.Entry
	byClass  map[vocab.Class][]vocab.Entry
	meanings []string
}

func newDistractorSource(valid []vocab.Entry) *distractorSource {
	d := &distractorSource{valid: valid, byClass: map[vocab.Class][]vocab.Entry{}}
	seen := map[string]bool{}
	for _, e := range valid {
		d.byClass[e.Class] = append(d.byClass[e.Class], e)
		for _, m := range e.Meanings {
			m = strings.TrimSpace(m)
			if m != "" && !seen[m] {
				seen[m] = true
				d.meanings = append(d.meanings, m)
			}
		}
	}
	return d
}

func (b *Builder) multipleChoice(t vocab.Entry, d *distractorSource) Question {
	correct := t.Answer()
	used := map[string]bool{correct: true}
	wrongs := make([]distractor, 0, ChoiceCount-1)

	fromEntries := func(entries []vocab.Entry) {
		for _, i := range b.rng.Perm(len(entries)) {
			if len(wrongs) >= ChoiceCount-1 {
				return
			}
			c := entries[i]
			m := c.Answer()
			if c.ID == t.ID || m == "" || used[m] {
				continue
			}
			used[m] = true
			wrongs = append(wrongs, distractor{text: m, reading: c.AnswerReading()})
		}
	}

	fromEntries(d.byClass[t.Class])
	if len(wrongs) < ChoiceCount-1 {
		fromEntries(d.valid)
	}
	if len(wrongs) < ChoiceCount-1 {
		for _, i := range b.rng.Perm(len(d.meanings)) {
			if len(wrongs) >= ChoiceCount-1 {
				break
			}
			m := d.meanings[i]
			if used[m] {
				continue
			}
			used[m] = true
			wrongs = append(wrongs, distractor{text: m})
		}
	}

	padded := 0
	for n := 1; len(wrongs) < ChoiceCount-1; n++ {
		p := Placeholder
		if n > 1 {
			p = fmt.Sprintf("（なし%d）", n)
		}
		if used[p] {
			continue
		}
		used[p] = true
		wrongs = append(wrongs, distractor{text: p})
		padded++
	}
	if padded > 0 && b.Logger != nil {
		b.Logger.Printf("quiz: padded %d placeholder choice(s) for vocab %d (%s)", padded, t.ID, t.Word)
	}

	all := append([]distractor{{text: correct, reading: t.AnswerReading()}}, wrongs...)
	q := Question{
		VocabID:        t.ID,
		PromptWord:     t.Word,
		Reading:        t.Reading,
		Kind:           MultipleChoice,
		Choices:        make([]string, len(all)),
		ChoiceReadings: make([]string, len(all)),
		Padded:         padded,
	}
	for pos, i := range b.rng.Perm(len(all)) {
		q.Choices[pos] = all[i].text
		q.ChoiceReadings[pos] = all[i].reading
		if i == 0 {
			q.AnswerIndex = pos
		}
	}
	return q
}
