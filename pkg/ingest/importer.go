package ingest

import (
	"context"
	"database/sql"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/kogoto/pkg/db"
	"github.com/japaniel/kogoto/pkg/vocab"
)

// Annotator fills in derived fields of an entry. *reading.Analyzer
// implements it.
type Annotator interface {
	Annotate(e vocab.Entry) vocab.Entry
}

// Importer annotates vocabulary entries concurrently and writes them to the
// vocab table in input order.
type Importer struct {
	DB        *sql.DB
	Annotator Annotator // nil leaves entries as parsed
	Workers   int
	BatchSize int
	// FlushInterval commits a partial batch after this long. Zero disables.
	FlushInterval time.Duration
	Logger        *log.Logger
	// OnProgress is called after every committed batch.
	OnProgress func(written, total int)
	// PoolFactory replaces the worker pool, mainly for tests.
	PoolFactory func(ctx context.Context, workers int) Pool
}

func NewImporter(conn *sql.DB, a Annotator) *Importer {
	return &Importer{
		DB:        conn,
		Annotator: a,
		Workers:   runtime.NumCPU(),
		BatchSize: 50,
	}
}

type annotated struct {
	idx   int
	entry vocab.Entry
}

// Import writes entries and returns how many were committed. Entries whose
// batch failed are not counted; the first failure is returned.
func (im *Importer) Import(ctx context.Context, entries []vocab.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	workers := im.Workers
	if workers <= 0 {
		workers = 1
	}
	newPool := im.PoolFactory
	if newPool == nil {
		newPool = func(ctx context.Context, n int) Pool { return NewWorkerPool(ctx, n) }
	}

	var written atomic.Int64
	bw := NewBatchWriter(im.DB, im.BatchSize, im.FlushInterval)
	bw.OnCommit = func(n int) {
		w := written.Add(int64(n))
		if im.OnProgress != nil {
			im.OnProgress(int(w), len(entries))
		}
	}
	bw.OnError = func(err error) {
		if im.Logger != nil {
			im.Logger.Printf("vocab batch failed: %v", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan annotated, workers*2)

	g.Go(func() error {
		defer close(results)
		pool := newPool(gctx, workers)
		for i, e := range entries {
			err := pool.Submit(gctx, func(ctx context.Context) error {
				if im.Annotator != nil {
					e = im.Annotator.Annotate(e)
				}
				select {
				case results <- annotated{idx: i, entry: e}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				pool.Close()
				return errors.Wrapf(err, "submit entry %d", e.ID)
			}
		}
		return pool.Close()
	})

	// Results arrive out of order; hold them until the next position is in.
	g.Go(func() error {
		buffered := make(map[int]vocab.Entry)
		next := 0
		for r := range results {
			buffered[r.idx] = r.entry
			for {
				e, ok := buffered[next]
				if !ok {
					break
				}
				delete(buffered, next)
				pos := next
				if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
					return db.UpsertVocab(ctx, tx, pos, e)
				}); err != nil {
					return err
				}
				next++
			}
		}
		return nil
	})

	err := g.Wait()
	closeErr := bw.Close()
	n := int(written.Load())
	if err != nil {
		return n, err
	}
	if closeErr != nil {
		return n, errors.Wrap(closeErr, "write vocab")
	}
	if im.Logger != nil {
		im.Logger.Printf("imported %d vocab entries", n)
	}
	return n, nil
}
