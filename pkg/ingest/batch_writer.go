package ingest

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// WriteFunc performs writes inside a batch transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter buffers writes and commits them in one transaction per batch.
// Batches are committed in submission order by a single goroutine.
type BatchWriter struct {
	// OnError is called for every failed batch.
	OnError func(error)
	// OnCommit is called with the size of every committed batch.
	OnCommit func(n int)

	db   *sql.DB
	size int

	mu      sync.Mutex
	pending []WriteFunc
	closed  bool

	batches chan []WriteFunc
	stop    chan struct{}
	wg      sync.WaitGroup

	errMu    sync.Mutex
	firstErr error
}

// NewBatchWriter returns a writer that commits every size writes, and every
// interval when interval is positive.
func NewBatchWriter(db *sql.DB, size int, interval time.Duration) *BatchWriter {
	if size <= 0 {
		size = 10
	}
	bw := &BatchWriter{
		db:      db,
		size:    size,
		pending: make([]WriteFunc, 0, size),
		batches: make(chan []WriteFunc, 2),
		stop:    make(chan struct{}),
	}
	bw.wg.Add(1)
	go bw.commitLoop()
	if interval > 0 {
		bw.wg.Add(1)
		go bw.tickLoop(interval)
	}
	return bw
}

// Submit queues w. It blocks while two full batches wait to be committed.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.pending = append(bw.pending, w)
	if len(bw.pending) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

func (bw *BatchWriter) flushLocked() {
	if len(bw.pending) == 0 {
		return
	}
	bw.batches <- bw.pending
	bw.pending = make([]WriteFunc, 0, bw.size)
}

// Err returns the first batch error seen so far.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

func (bw *BatchWriter) record(err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for batch := range bw.batches {
		if err := bw.commit(batch); err != nil {
			bw.record(err)
			continue
		}
		if bw.OnCommit != nil {
			bw.OnCommit(len(batch))
		}
	}
}

// commit runs one batch. A failed write rolls back the whole batch.
func (bw *BatchWriter) commit(batch []WriteFunc) error {
	// Commits use a background context so Close can drain after the
	// caller's context is gone.
	ctx := context.Background()
	if bw.db == nil {
		for _, w := range batch {
			if err := w(ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}
	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin batch")
	}
	defer tx.Rollback()
	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}
	return errors.Wrapf(tx.Commit(), "commit batch of %d", len(batch))
}

func (bw *BatchWriter) tickLoop(interval time.Duration) {
	defer bw.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-bw.stop:
			return
		case <-t.C:
			bw.mu.Lock()
			if !bw.closed {
				bw.flushLocked()
			}
			bw.mu.Unlock()
		}
	}
}

// Close commits what is buffered, waits for all batches and returns the
// first batch error.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	bw.flushLocked()
	bw.mu.Unlock()

	close(bw.stop)
	close(bw.batches)
	bw.wg.Wait()
	return bw.Err()
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
