// Package judge resolves spoken answers against choices and scores judged
// answers.
package judge

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/japaniel/kogoto/pkg/reading"
)

// Rule names the resolution step that matched a spoken answer.
type Rule string

const (
	RuleNumber  Rule = "number"
	RuleReading Rule = "reading"
	RuleLabel   Rule = "label"
	RuleNone    Rule = "none"
)

// Match is the outcome of resolving a spoken answer.
type Match struct {
	Rule  Rule
	Index int // -1 when Rule is RuleNone
}

// OK reports whether a choice was matched.
func (m Match) OK() bool { return m.Rule != RuleNone && m.Index >= 0 }

// Normalize casefolds, applies NFKC compatibility decomposition and strips
// punctuation, symbols and whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(cases.Fold().String(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}

var ordinalRe = regexp.MustCompile(`^([1-9])番?目?$`)

// numberWords maps hiragana and kanji number words to a zero-based index.
var numberWords = map[string]int{
	"いち": 0, "ひとつ": 0, "いちばん": 0, "だいいち": 0, "一": 0, "一番": 0,
	"に": 1, "ふたつ": 1, "にばん": 1, "だいに": 1, "二": 1, "二番": 1,
	"さん": 2, "みっつ": 2, "さんばん": 2, "だいさん": 2, "三": 2, "三番": 2,
	"よん": 3, "し": 3, "よっつ": 3, "よんばん": 3, "だいよん": 3, "四": 3, "四番": 3,
}

// NumberIndex interprets text as an ordinal reference ("2", "２番", "に",
// "ニバン"). It reports false when text is not a number reference or the
// number is outside [1, n].
func NumberIndex(text string, n int) (int, bool) {
	t := reading.ToHiragana(Normalize(text))
	if t == "" {
		return 0, false
	}
	idx := -1
	if m := ordinalRe.FindStringSubmatch(t); m != nil {
		idx = int(m[1][0]-'0') - 1
	} else if i, ok := numberWords[t]; ok {
		idx = i
	}
	if idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// ReadingIndex matches text exactly against the auxiliary readings. Kana
// script differences are ignored.
func ReadingIndex(text string, readings []string) (int, bool) {
	t := reading.ToHiragana(strings.TrimSpace(text))
	if t == "" {
		return 0, false
	}
	for i, r := range readings {
		r = reading.ToHiragana(strings.TrimSpace(r))
		if r != "" && r == t {
			return i, true
		}
	}
	return 0, false
}

// LabelIndex matches text against the display labels after Normalize.
func LabelIndex(text string, choices []string) (int, bool) {
	t := Normalize(text)
	if t == "" {
		return 0, false
	}
	for i, c := range choices {
		if Normalize(c) == t {
			return i, true
		}
	}
	return 0, false
}

// MatchSpeech resolves spoken text against a question's choices. Rules run in
// fixed order: number reference, auxiliary reading, display label. The first
// rule to match wins.
func MatchSpeech(text string, choices, readings []string) Match {
	if i, ok := NumberIndex(text, len(choices)); ok {
		return Match{Rule: RuleNumber, Index: i}
	}
	if i, ok := ReadingIndex(text, readings); ok && i < len(choices) {
		return Match{Rule: RuleReading, Index: i}
	}
	if i, ok := LabelIndex(text, choices); ok {
		return Match{Rule: RuleLabel, Index: i}
	}
	return Match{Rule: RuleNone, Index: -1}
}
