package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/session"
	"github.com/japaniel/kogoto/pkg/vocab"
)

// vocabRow mirrors the vocab table. List columns hold JSON arrays.
type vocabRow struct {
	ID              int64
	Position        int
	Word            string
	Reading         string
	Meanings        string
	MeaningReadings string
	Class           string
	Nuance          string
	Hint            string
}

func newVocabRow(position int, e vocab.Entry) (vocabRow, error) {
	meanings, err := encodeList(e.Meanings)
	if err != nil {
		return vocabRow{}, err
	}
	readings, err := encodeList(e.MeaningReadings)
	if err != nil {
		return vocabRow{}, err
	}
	return vocabRow{
		ID:              e.ID,
		Position:        position,
		Word:            e.Word,
		Reading:         e.Reading,
		Meanings:        meanings,
		MeaningReadings: readings,
		Class:           string(e.Class),
		Nuance:          string(e.Nuance),
		Hint:            e.Hint,
	}, nil
}

func (r vocabRow) entry() (vocab.Entry, error) {
	e := vocab.Entry{
		ID:      r.ID,
		Word:    r.Word,
		Reading: r.Reading,
		Class:   vocab.NormalizeClass(r.Class),
		Nuance:  vocab.NormalizeNuance(r.Nuance),
		Hint:    r.Hint,
	}
	var err error
	if e.Meanings, err = decodeList(r.Meanings); err != nil {
		return vocab.Entry{}, errors.Wrapf(err, "vocab %d meanings", r.ID)
	}
	if e.MeaningReadings, err = decodeList(r.MeaningReadings); err != nil {
		return vocab.Entry{}, errors.Wrapf(err, "vocab %d meaning readings", r.ID)
	}
	return e, nil
}

func encodeList(v []string) (string, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode list")
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// sessionRow mirrors the sessions table.
type sessionRow struct {
	Seq          int64
	ID           string
	StartedAt    string
	CorrectRate  float64
	ComboMax     int
	EarnedPoints int
	Aborted      bool
}

func (r sessionRow) result(items []session.Item) (session.Result, error) {
	started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return session.Result{}, errors.Wrapf(err, "session %s started_at", r.ID)
	}
	out := session.Result{
		ID:           r.ID,
		StartedAt:    started,
		Items:        items,
		CorrectRate:  r.CorrectRate,
		ComboMax:     r.ComboMax,
		EarnedPoints: r.EarnedPoints,
		Aborted:      r.Aborted,
	}
	for _, it := range items {
		if !it.Correct {
			out.WrongIDs = append(out.WrongIDs, it.VocabID)
		}
	}
	return out, nil
}

func scanItem(rows *sql.Rows) (int64, session.Item, error) {
	var (
		seq    int64
		it     session.Item
		chosen sql.NullString
	)
	if err := rows.Scan(&seq, &it.VocabID, &it.Word, &it.CorrectText, &chosen, &it.Correct); err != nil {
		return 0, session.Item{}, err
	}
	if chosen.Valid {
		s := chosen.String
		it.ChosenText = &s
	}
	return seq, it, nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
