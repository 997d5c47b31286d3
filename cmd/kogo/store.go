package main

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/db"
	"github.com/japaniel/kogoto/pkg/ingest"
	"github.com/japaniel/kogoto/pkg/reading"
	"github.com/japaniel/kogoto/pkg/vocab"
)

// open opens the configured database and its session store.
func (a *app) open() (*sql.DB, *db.SessionStore, error) {
	conn, err := db.Open(a.v.GetString("db"))
	if err != nil {
		return nil, nil, err
	}
	st := db.NewSessionStore(conn)
	st.Retention = a.v.GetInt("sessions_retention")
	st.WrongQueueSize = a.v.GetInt("wrong_queue_limit")
	return conn, st, nil
}

// pool returns the stored vocabulary. An empty database is filled from the
// configured vocab file first.
func (a *app) pool(ctx context.Context, conn *sql.DB) ([]vocab.Entry, error) {
	n, err := db.CountVocab(ctx, conn)
	if err != nil {
		return nil, err
	}
	if src := a.v.GetString("vocab"); n == 0 && src != "" {
		a.logger.Printf("database has no vocabulary, importing %s", src)
		if _, err := a.importSource(ctx, conn, importOptions{Source: src, Readings: true, CacheDir: defaultCacheDir()}); err != nil {
			return nil, err
		}
	}
	return db.ListVocab(ctx, conn)
}

type importOptions struct {
	Source   string
	CacheDir string
	Refresh  bool
	Readings bool
	Workers  int
	Progress func(written, total int)
}

// importSource fetches, parses, annotates and stores a vocabulary source.
func (a *app) importSource(ctx context.Context, conn *sql.DB, opts importOptions) (int, error) {
	fetcher := ingest.NewFetcher(opts.CacheDir)
	fetcher.Logger = a.logger
	path, err := fetcher.Ensure(ctx, opts.Source, opts.Refresh)
	if err != nil {
		return 0, err
	}
	entries, stats, err := vocab.ParseFile(path)
	if err != nil {
		return 0, err
	}
	if stats.Dropped > 0 || stats.EmptyMeanings > 0 {
		a.logger.Printf("%s: %d rows, %d dropped, %d without meanings", opts.Source, stats.Rows, stats.Dropped, stats.EmptyMeanings)
	}

	var annotator ingest.Annotator
	if opts.Readings {
		an, err := reading.NewAnalyzer()
		if err != nil {
			return 0, errors.Wrap(err, "reading analyzer")
		}
		annotator = an
	}
	im := ingest.NewImporter(conn, annotator)
	im.Logger = a.logger
	im.OnProgress = opts.Progress
	if opts.Workers > 0 {
		im.Workers = opts.Workers
	}
	return im.Import(ctx, entries)
}
