package vocab

import "strings"

// Tab selects entries by answer history, mirroring the browser tabs.
type Tab string

const (
	TabAll    Tab = "all"
	TabNew    Tab = "new"    // never asked
	TabReview Tab = "review" // most recent outcome was a miss
)

// Filter narrows a list of entries for the vocabulary browser. Zero values
// match everything.
type Filter struct {
	Tab    Tab
	Class  Class
	Nuance Nuance
	Query  string
}

// History answers the two questions the browser tabs need.
type History interface {
	Seen(id int64) bool
	LastCorrect(id int64) (correct, ok bool)
}

// Apply returns the entries matching f, in order. h may be nil when Tab is
// TabAll or empty.
func (f Filter) Apply(entries []Entry, h History) []Entry {
	q := strings.ToLower(trimAll(f.Query))
	var out []Entry
	for _, e := range entries {
		if f.Class != "" && e.Class != f.Class {
			continue
		}
		if f.Nuance != "" && e.Nuance != f.Nuance {
			continue
		}
		if q != "" && !matchesQuery(e, q) {
			continue
		}
		switch f.Tab {
		case TabNew:
			if h != nil && h.Seen(e.ID) {
				continue
			}
		case TabReview:
			if h == nil {
				continue
			}
			if ok, seen := h.LastCorrect(e.ID); !seen || ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func matchesQuery(e Entry, q string) bool {
	if strings.Contains(strings.ToLower(e.Word), q) || strings.Contains(e.Reading, q) {
		return true
	}
	for _, m := range e.Meanings {
		if strings.Contains(strings.ToLower(m), q) {
			return true
		}
	}
	return false
}
