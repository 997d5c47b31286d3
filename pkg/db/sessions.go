package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/pet"
	"github.com/japaniel/kogoto/pkg/session"
	"github.com/japaniel/kogoto/pkg/store"
	"github.com/japaniel/kogoto/pkg/vocab"
)

const pointsCounter = "points"

// SessionStore is a store.Store backed by SQLite.
type SessionStore struct {
	DB             *sql.DB
	Retention      int
	WrongQueueSize int
}

// NewSessionStore returns a store on a migrated connection.
func NewSessionStore(conn *sql.DB) *SessionStore {
	return &SessionStore{
		DB:             conn,
		Retention:      store.DefaultRetention,
		WrongQueueSize: store.DefaultWrongQueueSize,
	}
}

var _ store.Store = (*SessionStore)(nil)

// SaveSession writes the session, its items, the wrong queue, eviction and
// the points credit in one transaction.
func (s *SessionStore) SaveSession(ctx context.Context, r session.Result) error {
	if r.ID == "" {
		return errors.New("session id is empty")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO credited_sessions (id) VALUES (?)`, r.ID); err != nil {
		if isUniqueConstraintErr(err) {
			return errors.Wrapf(store.ErrDuplicateSession, "%s", r.ID)
		}
		return errors.Wrap(err, "credit session")
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `INSERT INTO sessions (id, started_at, correct_rate, combo_max, earned_points, aborted)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING seq`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.CorrectRate, r.ComboMax, r.EarnedPoints, r.Aborted).Scan(&seq)
	if err != nil {
		return errors.Wrap(err, "insert session")
	}
	for i, it := range r.Items {
		if _, err := tx.ExecContext(ctx, `INSERT INTO session_items (session_seq, position, vocab_id, word, correct_text, chosen_text, correct)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			seq, i, it.VocabID, it.Word, it.CorrectText, nullableString(it.ChosenText), it.Correct); err != nil {
			return errors.Wrapf(err, "insert item %d", i)
		}
	}

	for _, id := range r.WrongIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO wrong_queue (vocab_id) VALUES (?)`, id); err != nil {
			return errors.Wrap(err, "queue wrong id")
		}
	}
	if s.WrongQueueSize > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM wrong_queue WHERE seq NOT IN
			(SELECT seq FROM wrong_queue ORDER BY seq DESC LIMIT ?)`, s.WrongQueueSize); err != nil {
			return errors.Wrap(err, "trim wrong queue")
		}
	}

	if s.Retention > 0 {
		const evicted = `SELECT seq FROM sessions ORDER BY seq DESC LIMIT -1 OFFSET ?`
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_items WHERE session_seq IN (`+evicted+`)`, s.Retention); err != nil {
			return errors.Wrap(err, "evict items")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE seq IN (`+evicted+`)`, s.Retention); err != nil {
			return errors.Wrap(err, "evict sessions")
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = counters.value + excluded.value`,
		pointsCounter, r.EarnedPoints); err != nil {
		return errors.Wrap(err, "credit points")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// MissWeights derives weights from retained history.
func (s *SessionStore) MissWeights(ctx context.Context) (vocab.MissWeights, error) {
	history, err := s.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return store.MissWeightsFrom(history), nil
}

func (s *SessionStore) LatestSession(ctx context.Context) (session.Result, error) {
	out, err := s.load(ctx, true)
	if err != nil {
		return session.Result{}, err
	}
	if len(out) == 0 {
		return session.Result{}, store.ErrNoSession
	}
	return out[0], nil
}

func (s *SessionStore) Sessions(ctx context.Context) ([]session.Result, error) {
	return s.load(ctx, false)
}

// load reads inside a transaction so a concurrent save is seen whole or not
// at all.
func (s *SessionStore) load(ctx context.Context, latestOnly bool) ([]session.Result, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()
	return loadSessions(ctx, tx, latestOnly)
}

// loadSessions reads sessions oldest first, or only the newest. Rows are
// drained before items are read so a single connection suffices.
func loadSessions(ctx context.Context, db DBExecutor, latestOnly bool) ([]session.Result, error) {
	q := `SELECT seq, id, started_at, correct_rate, combo_max, earned_points, aborted FROM sessions ORDER BY seq`
	if latestOnly {
		q = `SELECT seq, id, started_at, correct_rate, combo_max, earned_points, aborted FROM sessions ORDER BY seq DESC LIMIT 1`
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "query sessions")
	}
	var heads []sessionRow
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(&r.Seq, &r.ID, &r.StartedAt, &r.CorrectRate, &r.ComboMax, &r.EarnedPoints, &r.Aborted); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan session")
		}
		heads = append(heads, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(heads) == 0 {
		return nil, nil
	}

	minSeq := heads[0].Seq
	rows, err = db.QueryContext(ctx, `SELECT session_seq, vocab_id, word, correct_text, chosen_text, correct
		FROM session_items WHERE session_seq >= ? ORDER BY session_seq, position`, minSeq)
	if err != nil {
		return nil, errors.Wrap(err, "query items")
	}
	items := map[int64][]session.Item{}
	for rows.Next() {
		seq, it, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan item")
		}
		items[seq] = append(items[seq], it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]session.Result, 0, len(heads))
	for _, h := range heads {
		r, err := h.result(items[h.Seq])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SessionStore) WrongQueue(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT vocab_id FROM wrong_queue ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "query wrong queue")
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SessionStore) Points(ctx context.Context) (int, error) {
	return readPoints(ctx, s.DB)
}

func readPoints(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = ?`, pointsCounter).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read points")
	}
	return n, nil
}

func (s *SessionStore) Pet(ctx context.Context) (pet.State, error) {
	return readPet(ctx, s.DB)
}

func readPet(ctx context.Context, db DBExecutor) (pet.State, error) {
	var p pet.State
	err := db.QueryRowContext(ctx, `SELECT level, affinity FROM pet WHERE id = 1`).Scan(&p.Level, &p.Affinity)
	if err == sql.ErrNoRows {
		return pet.Initial, nil
	}
	if err != nil {
		return pet.State{}, errors.Wrap(err, "read pet")
	}
	return p, nil
}

// UpdatePet reads the balance and pet, applies fn and writes both back in
// one transaction.
func (s *SessionStore) UpdatePet(ctx context.Context, fn store.PetUpdate) (pet.State, int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return pet.State{}, 0, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	points, err := readPoints(ctx, tx)
	if err != nil {
		return pet.State{}, 0, err
	}
	cur, err := readPet(ctx, tx)
	if err != nil {
		return pet.State{}, 0, err
	}
	cost, next, err := fn(points, cur)
	if err != nil {
		return cur, points, err
	}
	if cost > points {
		return cur, points, errors.Wrapf(pet.ErrInsufficientPoints, "cost %d, balance %d", cost, points)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, pointsCounter, points-cost); err != nil {
		return cur, points, errors.Wrap(err, "debit points")
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO pet (id, level, affinity) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET level = excluded.level, affinity = excluded.affinity`, next.Level, next.Affinity); err != nil {
		return cur, points, errors.Wrap(err, "save pet")
	}
	if err := tx.Commit(); err != nil {
		return cur, points, errors.Wrap(err, "commit")
	}
	return next, points - cost, nil
}
