package reading

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/kogoto/pkg/vocab"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface  string // The text as it appears (e.g. "悲しい")
	BaseForm string // The dictionary form
	Reading  string // Hiragana reading, "" when the dictionary has none
	POS      string // Primary Kagome POS label (e.g. "形容詞")
}

// Analyzer derives kana readings for modern-Japanese glosses.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// Kagome IPA features:
		// 0: Part of Speech
		// 6: Base Form (Lemma)
		// 7: Reading (katakana)
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = ToHiragana(features[7])
		}
		pos := ""
		if len(features) > 0 {
			pos = features[0]
		}

		result = append(result, Token{
			Surface:  token.Surface,
			BaseForm: base,
			Reading:  reading,
			POS:      pos,
		})
	}
	return result
}

// Reading returns the hiragana reading of text. Tokens without a dictionary
// reading (symbols, latin, unknown words) contribute their surface folded to
// hiragana. Punctuation is skipped.
func (a *Analyzer) Reading(text string) string {
	var b strings.Builder
	for _, tok := range a.Analyze(text) {
		if tok.POS == "記号" {
			continue
		}
		if tok.Reading != "" {
			b.WriteString(tok.Reading)
			continue
		}
		b.WriteString(ToHiragana(tok.Surface))
	}
	return b.String()
}

// Annotate fills missing meaning readings of e. Readings supplied by the
// source are kept as they are.
func (a *Analyzer) Annotate(e vocab.Entry) vocab.Entry {
	if len(e.Meanings) == 0 {
		return e
	}
	readings := make([]string, len(e.Meanings))
	copy(readings, e.MeaningReadings)
	for i, m := range e.Meanings {
		if strings.TrimSpace(readings[i]) == "" {
			readings[i] = a.Reading(m)
		}
	}
	e.MeaningReadings = readings
	return e
}

// AnnotateAll annotates every entry in place and returns the slice.
func (a *Analyzer) AnnotateAll(entries []vocab.Entry) []vocab.Entry {
	for i := range entries {
		entries[i] = a.Annotate(entries[i])
	}
	return entries
}
