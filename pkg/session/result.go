package session

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Item records one judged question.
type Item struct {
	VocabID     int64
	Word        string
	CorrectText string
	// ChosenText is nil when the question timed out without a usable signal.
	ChosenText *string
	Correct    bool
}

// Result is one play-through. It is immutable once handed to a store.
type Result struct {
	ID           string
	StartedAt    time.Time
	Items        []Item
	CorrectRate  float64
	ComboMax     int
	EarnedPoints int
	WrongIDs     []int64
	// Aborted is set when the session was stopped before the last question.
	Aborted bool
}

// Correct counts correct items.
func (r Result) Correct() int {
	n := 0
	for _, it := range r.Items {
		if it.Correct {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := r
	out.Items = make([]Item, len(r.Items))
	for i, it := range r.Items {
		if it.ChosenText != nil {
			s := *it.ChosenText
			it.ChosenText = &s
		}
		out.Items[i] = it
	}
	out.WrongIDs = append([]int64(nil), r.WrongIDs...)
	return out
}

// NewID returns a time-ordered session id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Summary is the flat set of values passed from play to results.
type Summary struct {
	Total   int
	Correct int
	Streak  int
}

// Summary returns the result's summary values.
func (r Result) Summary() Summary {
	return Summary{Total: len(r.Items), Correct: r.Correct(), Streak: r.ComboMax}
}

// Values encodes s as total, correct and streak.
func (s Summary) Values() url.Values {
	v := url.Values{}
	v.Set("total", strconv.Itoa(s.Total))
	v.Set("correct", strconv.Itoa(s.Correct))
	v.Set("streak", strconv.Itoa(s.Streak))
	return v
}

// ParseSummary decodes summary values. Missing keys read as zero.
func ParseSummary(v url.Values) (Summary, error) {
	var s Summary
	for _, f := range []struct {
		key string
		dst *int
	}{{"total", &s.Total}, {"correct", &s.Correct}, {"streak", &s.Streak}} {
		raw := v.Get(f.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Summary{}, errors.Errorf("invalid %s %q", f.key, raw)
		}
		*f.dst = n
	}
	if s.Correct > s.Total {
		return Summary{}, errors.Errorf("correct %d exceeds total %d", s.Correct, s.Total)
	}
	return s, nil
}
