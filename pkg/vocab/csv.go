package vocab

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Stats summarises a parse run.
type Stats struct {
	Rows          int // data rows read, excluding the header
	Dropped       int // rows rejected for a bad id or empty word
	EmptyMeanings int // rows kept but not quizzable
}

// header aliases, lower-cased.
var columnAliases = map[string]string{
	"id":               "id",
	"word":             "word",
	"reading":          "reading",
	"meanings":         "meanings",
	"meaning":          "meanings",
	"nuance":           "nuance",
	"part":             "class",
	"grammaticalclass": "class",
	"class":            "class",
	"hint":             "hint",
	"mean_reading":     "mean_reading",
	"meaningreadings":  "mean_reading",
}

// ParseFile reads a vocabulary CSV from disk.
func ParseFile(path string) ([]Entry, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, errors.Wrapf(err, "open vocab %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads CSV with a header row and returns normalized entries in source
// order. Malformed rows are dropped rather than reported as errors. Duplicate
// ids pass through.
func Parse(r io.Reader) ([]Entry, Stats, error) {
	var st Stats

	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, st, nil
	}
	if err != nil {
		return nil, st, errors.Wrap(err, "read vocab header")
	}

	col := map[string]int{}
	for i, h := range head {
		if name, ok := columnAliases[strings.ToLower(trimAll(h))]; ok {
			if _, dup := col[name]; !dup {
				col[name] = i
			}
		}
	}
	if _, ok := col["id"]; !ok {
		return nil, st, errors.New("vocab header has no id column")
	}
	if _, ok := col["word"]; !ok {
		return nil, st, errors.New("vocab header has no word column")
	}

	var out []Entry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, st, errors.Wrapf(err, "read vocab row %d", st.Rows+1)
		}
		st.Rows++

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return trimAll(row[i])
		}

		id, err := strconv.ParseInt(get("id"), 10, 64)
		if err != nil {
			st.Dropped++
			continue
		}
		word := get("word")
		if word == "" {
			st.Dropped++
			continue
		}

		e := Entry{
			ID:              id,
			Word:            word,
			Reading:         get("reading"),
			Meanings:        SplitMeanings(get("meanings")),
			MeaningReadings: splitReadings(get("mean_reading")),
			Class:           NormalizeClass(get("class")),
			Nuance:          NormalizeNuance(get("nuance")),
			Hint:            get("hint"),
		}
		if !e.Quizzable() {
			st.EmptyMeanings++
		}
		out = append(out, e)
	}
	return out, st, nil
}
