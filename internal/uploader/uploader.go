// Package uploader moves an in-memory table into a remote pool table in
// fixed-size chunks, pausing between chunks so the target keeps up.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"datapush/internal/metrics"
	"datapush/internal/pacing"
	"datapush/internal/platform"
	"datapush/internal/table"
)

const (
	// DefaultChunkSize bounds a single push request.
	DefaultChunkSize = 100_000
	// DefaultPause is inserted between consecutive chunks of one file.
	DefaultPause = 10 * time.Second
)

// Result summarizes one completed file upload.
type Result struct {
	File     string
	Records  int
	Inserted int
	Chunks   int
	PoolID   string
	Time     time.Time
}

// ChunkError wraps a failure of a single chunk with its position so the log
// line can point at the offending row range.
type ChunkError struct {
	Table string
	Start int
	End   int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("upload %s rows %d-%d: %v", e.Table, e.Start, e.End, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Uploader pushes tables chunk by chunk. The zero value is not usable, call
// New.
//
// For every chunk the uploader first tries to append to the existing remote
// table. If the table is missing, or the append is rejected for any other
// reason, it falls back to creating the table with the chunk as the initial
// payload. Only when both paths fail does the file fail; chunks already
// accepted stay in the pool, there is no rollback.
type Uploader struct {
	// ChunkSize is the maximum rows per request.
	ChunkSize int
	// Pause separates consecutive chunk requests. Not applied after the
	// final chunk.
	Pause time.Duration
	// Wait implements the pause. Tests substitute a recording func.
	Wait pacing.Func
	// Now stamps results. Tests pin it.
	Now func() time.Time

	Log *slog.Logger
}

// New returns an Uploader with production chunking and pacing.
func New(log *slog.Logger) *Uploader {
	if log == nil {
		log = slog.Default()
	}
	return &Uploader{
		ChunkSize: DefaultChunkSize,
		Pause:     DefaultPause,
		Wait:      pacing.Wait,
		Now:       time.Now,
		Log:       log,
	}
}

// Upload pushes tbl into the pool table named tableName. columns carries the
// sanitized column names in declaration order; tbl rows are positional and
// must match.
//
// Edge cases:
//   - An empty table uploads zero chunks and reports zero inserted rows.
//   - A chunk rejected on append is retried once as a table create. This
//     covers both a missing table and a target that dropped it mid-batch.
//
// Errors: a *ChunkError when a chunk fails both paths, or the context error
// when cancelled during a pause.
func (u *Uploader) Upload(ctx context.Context, pool platform.Pool, tableName string, columns []string, tbl *table.Table) (*Result, error) {
	size := u.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := tbl.Chunks(size)

	res := &Result{
		File:    tableName,
		Records: tbl.RowCount(),
		Chunks:  len(chunks),
		PoolID:  pool.ID(),
		Time:    u.Now(),
	}

	for i, ch := range chunks {
		rows := platform.Rows{Columns: columns, Values: ch.Rows}

		n, err := u.pushChunk(ctx, pool, tableName, rows)
		if err != nil {
			metrics.IncCounter("push.chunks.total", 1, metrics.Labels{"status": "failed"})
			return nil, &ChunkError{Table: tableName, Start: ch.Start, End: ch.End, Err: err}
		}
		res.Inserted += n
		metrics.IncCounter("push.chunks.total", 1, metrics.Labels{"status": "ok"})
		u.Log.Debug("chunk uploaded",
			"table", tableName,
			"rows", ch.Size(),
			"chunk", i+1,
			"chunks", len(chunks),
		)

		if i < len(chunks)-1 {
			if err := u.Wait(ctx, u.Pause); err != nil {
				return nil, err
			}
		}
	}

	metrics.IncCounter("push.records.total", int64(res.Inserted), metrics.Labels{"kind": "inserted"})
	return res, nil
}

// pushChunk appends rows to the remote table, creating the table from the
// chunk when the append path fails.
func (u *Uploader) pushChunk(ctx context.Context, pool platform.Pool, tableName string, rows platform.Rows) (int, error) {
	n, appendErr := u.tryAppend(ctx, pool, tableName, rows)
	if appendErr == nil {
		return n, nil
	}
	if !errors.Is(appendErr, platform.ErrNotFound) {
		u.Log.Warn("append rejected, creating table from chunk",
			"table", tableName,
			"error", appendErr,
		)
	}

	n, createErr := pool.CreateTable(ctx, rows, tableName)
	if createErr != nil {
		return 0, fmt.Errorf("append failed (%v), create failed: %w", appendErr, createErr)
	}
	return n, nil
}

func (u *Uploader) tryAppend(ctx context.Context, pool platform.Pool, tableName string, rows platform.Rows) (int, error) {
	t, err := pool.Table(ctx, tableName)
	if err != nil {
		return 0, err
	}
	return t.Append(ctx, rows)
}
