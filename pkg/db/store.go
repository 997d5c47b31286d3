package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/vocab"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// UpsertVocab inserts or replaces the entry with e.ID. position orders the
// entry in ListVocab. Existing meaning readings are kept when e has none.
func UpsertVocab(ctx context.Context, db DBExecutor, position int, e vocab.Entry) error {
	if strings.TrimSpace(e.Word) == "" {
		return errors.Errorf("vocab %d: word must be non-empty", e.ID)
	}
	r, err := newVocabRow(position, e)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO vocab (id, position, word, reading, meanings, meaning_readings, class, nuance, hint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  position = excluded.position,
		  word = excluded.word,
		  reading = excluded.reading,
		  meanings = excluded.meanings,
		  meaning_readings = CASE WHEN excluded.meaning_readings = '[]' THEN vocab.meaning_readings ELSE excluded.meaning_readings END,
		  class = excluded.class,
		  nuance = excluded.nuance,
		  hint = excluded.hint`,
		r.ID, r.Position, r.Word, r.Reading, r.Meanings, r.MeaningReadings, r.Class, r.Nuance, r.Hint)
	if err != nil {
		return errors.Wrapf(err, "upsert vocab %d", e.ID)
	}
	return nil
}

// ListVocab returns all entries in import order.
func ListVocab(ctx context.Context, db DBExecutor) ([]vocab.Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, position, word, reading, meanings, meaning_readings, class, nuance, hint
		FROM vocab ORDER BY position, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list vocab")
	}
	var raw []vocabRow
	for rows.Next() {
		var r vocabRow
		if err := rows.Scan(&r.ID, &r.Position, &r.Word, &r.Reading, &r.Meanings, &r.MeaningReadings, &r.Class, &r.Nuance, &r.Hint); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan vocab")
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]vocab.Entry, 0, len(raw))
	for _, r := range raw {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// CountVocab returns the number of stored entries.
func CountVocab(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vocab`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count vocab")
	}
	return n, nil
}
