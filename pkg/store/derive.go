package store

import (
	"github.com/japaniel/kogoto/pkg/session"
	"github.com/japaniel/kogoto/pkg/vocab"
)

// WordStats counts outcomes for one word across history.
type WordStats struct {
	Seen    int
	Correct int
	Wrong   int
	// LastCorrect is the most recent outcome.
	LastCorrect bool
}

// MissWeightsFrom derives miss weights from history given oldest first. A
// word's weight is its miss count; a word whose latest outcome is correct is
// dropped regardless of earlier misses.
func MissWeightsFrom(history []session.Result) vocab.MissWeights {
	w := vocab.MissWeights{}
	for _, r := range history {
		for _, it := range r.Items {
			if it.Correct {
				delete(w, it.VocabID)
				continue
			}
			w[it.VocabID]++
		}
	}
	return w
}

// Stats derives per-word statistics from history given oldest first.
func Stats(history []session.Result) map[int64]WordStats {
	out := map[int64]WordStats{}
	for _, r := range history {
		for _, it := range r.Items {
			s := out[it.VocabID]
			s.Seen++
			if it.Correct {
				s.Correct++
			} else {
				s.Wrong++
			}
			s.LastCorrect = it.Correct
			out[it.VocabID] = s
		}
	}
	return out
}

// History answers vocab.History from derived statistics.
type History map[int64]WordStats

// NewHistory derives a History from sessions given oldest first.
func NewHistory(history []session.Result) History {
	return History(Stats(history))
}

func (h History) Seen(id int64) bool {
	_, ok := h[id]
	return ok
}

func (h History) LastCorrect(id int64) (correct, ok bool) {
	s, ok := h[id]
	return s.LastCorrect, ok
}
