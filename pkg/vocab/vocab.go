package vocab

import (
	"strings"
	"unicode"
)

// Class is the normalized grammatical class of an entry.
type Class string

const (
	ClassVerb          Class = "verb"
	ClassNoun          Class = "noun"
	ClassAdjective     Class = "adjective"
	ClassAdjectiveNoun Class = "adjectival-noun"
	ClassAdverb        Class = "adverb"
	ClassAdnominal     Class = "adnominal"
	ClassInterjection  Class = "interjection"
	ClassParticle      Class = "particle"
	ClassAuxiliary     Class = "auxiliary"
	ClassConjunction   Class = "conjunction"
	ClassSetPhrase     Class = "set-phrase"
	ClassSuffix        Class = "suffix"
	ClassPrefix        Class = "prefix"
	ClassProperNoun    Class = "proper-noun"
	ClassOther         Class = "other"
)

// Nuance is the emotional polarity of an entry, used by the expression quiz.
type Nuance string

const (
	NuancePositive Nuance = "positive"
	NuanceNegative Nuance = "negative"
	NuanceNeutral  Nuance = "neutral"
)

// Entry is one learnable word.
type Entry struct {
	ID      int64
	Word    string
	Reading string
	// Meanings holds modern glosses. Meanings[0] is the answer key.
	Meanings []string
	// MeaningReadings holds kana readings parallel to Meanings. It may be
	// shorter than Meanings, and entries may be empty.
	MeaningReadings []string
	Class           Class
	Nuance          Nuance
	Hint            string
}

// Quizzable reports whether the entry has a usable answer key.
func (e Entry) Quizzable() bool {
	return len(e.Meanings) > 0 && strings.TrimSpace(e.Meanings[0]) != ""
}

// Answer returns the canonical meaning, or "" when the entry is not quizzable.
func (e Entry) Answer() string {
	if !e.Quizzable() {
		return ""
	}
	return strings.TrimSpace(e.Meanings[0])
}

// AnswerReading returns the reading of the canonical meaning if known.
func (e Entry) AnswerReading() string {
	if len(e.MeaningReadings) == 0 {
		return ""
	}
	return strings.TrimSpace(e.MeaningReadings[0])
}

// MissWeights maps a vocab id to a non-negative miss weight.
type MissWeights map[int64]float64

// Get returns the weight for id, or 0.
func (w MissWeights) Get(id int64) float64 {
	if w == nil {
		return 0
	}
	v := w[id]
	if v < 0 {
		return 0
	}
	return v
}

// Has reports whether id is a review target.
func (w MissWeights) Has(id int64) bool {
	_, ok := w[id]
	return ok
}

// classTable maps native labels, abbreviations and known typos to a Class.
// Keys are lower-cased and trimmed.
var classTable = map[string]Class{
	"動詞":              ClassVerb,
	"verb":            ClassVerb,
	"v":               ClassVerb,
	"varb":            ClassVerb,
	"名詞":              ClassNoun,
	"noun":            ClassNoun,
	"n":               ClassNoun,
	"形容詞":             ClassAdjective,
	"adj":             ClassAdjective,
	"adjective":       ClassAdjective,
	"形容動詞":            ClassAdjectiveNoun,
	"adj-na":          ClassAdjectiveNoun,
	"na-adj":          ClassAdjectiveNoun,
	"adjectival-noun": ClassAdjectiveNoun,
	"adjectival noun": ClassAdjectiveNoun,
	"副詞":              ClassAdverb,
	"adv":             ClassAdverb,
	"adverb":          ClassAdverb,
	"連体詞":             ClassAdnominal,
	"adnominal":       ClassAdnominal,
	"determiner":      ClassAdnominal,
	"感動詞":             ClassInterjection,
	"interj":          ClassInterjection,
	"interjection":    ClassInterjection,
	"助詞":              ClassParticle,
	"particle":        ClassParticle,
	"助動詞":             ClassAuxiliary,
	"aux":             ClassAuxiliary,
	"auxiliary":       ClassAuxiliary,
	"接続詞":             ClassConjunction,
	"conj":            ClassConjunction,
	"conjunction":     ClassConjunction,
	"連語":              ClassSetPhrase,
	"phrase":          ClassSetPhrase,
	"set-phrase":      ClassSetPhrase,
	"expression":      ClassSetPhrase,
	"接尾語":             ClassSuffix,
	"接尾辞":             ClassSuffix,
	"説尾語":             ClassSuffix, // typo seen in source data
	"suffix":          ClassSuffix,
	"接頭語":             ClassPrefix,
	"接頭辞":             ClassPrefix,
	"prefix":          ClassPrefix,
	"固有名詞":            ClassProperNoun,
	"proper-noun":     ClassProperNoun,
	"proper noun":     ClassProperNoun,
	"other":           ClassOther,
	"その他":             ClassOther,
}

// NormalizeClass maps a raw class label to a Class. Unknown labels map to
// ClassOther.
func NormalizeClass(raw string) Class {
	if c, ok := classTable[strings.ToLower(trimAll(raw))]; ok {
		return c
	}
	return ClassOther
}

// NormalizeNuance maps a raw nuance label to a Nuance, case-insensitively.
func NormalizeNuance(raw string) Nuance {
	switch strings.ToLower(trimAll(raw)) {
	case "pos", "positive", "ポジ", "ポジティブ", "+":
		return NuancePositive
	case "neg", "negative", "ネガ", "ネガティブ", "-":
		return NuanceNegative
	}
	return NuanceNeutral
}

// MeaningSeparators is the canonical sub-delimiter set for multi-value cells.
// All of them split with equal precedence.
const MeaningSeparators = ",，、|"

// SplitMeanings splits a meanings cell and drops empty parts.
func SplitMeanings(raw string) []string {
	parts := strings.FieldsFunc(trimAll(raw), func(r rune) bool {
		return strings.ContainsRune(MeaningSeparators, r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = trimAll(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitReadings splits a reading cell but keeps empty slots so positions
// stay aligned with the meanings cell.
func splitReadings(raw string) []string {
	if trimAll(raw) == "" {
		return nil
	}
	var parts []string
	start := 0
	for i, r := range raw {
		if strings.ContainsRune(MeaningSeparators, r) {
			parts = append(parts, trimAll(raw[start:i]))
			start = i + len(string(r))
		}
	}
	return append(parts, trimAll(raw[start:]))
}

// trimAll trims ASCII and full-width whitespace plus a byte-order mark.
func trimAll(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// Quizzable returns the entries that can be used as quiz targets, preserving
// order.
func Quizzable(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Quizzable() {
			out = append(out, e)
		}
	}
	return out
}
