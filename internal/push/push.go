// Package push drives the end-to-end flow for one invocation: resolve the
// target path into a list of data files, then for each file read it, declare
// its schema in the pool, upload the rows, and report the outcome.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"datapush/internal/history"
	"datapush/internal/metrics"
	"datapush/internal/pacing"
	"datapush/internal/platform"
	"datapush/internal/provision"
	"datapush/internal/reader"
	"datapush/internal/schema"
	"datapush/internal/table"
	"datapush/internal/uploader"
)

// DefaultFilePause separates consecutive files of a directory batch.
const DefaultFilePause = 10 * time.Second

// ErrNoSupportedFiles reports a directory target that contains no readable
// data files.
var ErrNoSupportedFiles = errors.New("no supported data files in directory")

// Recorder receives per-file outcomes. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Summary aggregates one Run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Results   []*uploader.Result
}

// Orchestrator wires the per-file pipeline together. Build one with New and
// override seams as needed.
type Orchestrator struct {
	Provisioner *provision.Provisioner
	Uploader    *uploader.Uploader

	// Read loads one file into a table. Tests substitute a fake.
	Read func(path string) (*table.Table, error)

	// FilePause separates consecutive files. Not applied after the last.
	FilePause time.Duration
	Wait      pacing.Func

	// History is optional. Recording failures are logged, never fatal.
	History Recorder

	Log *slog.Logger
}

func New(log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		Provisioner: provision.New(log),
		Uploader:    uploader.New(log),
		Read:        reader.Read,
		FilePause:   DefaultFilePause,
		Wait:        pacing.Wait,
		Log:         log,
	}
}

// Run pushes the file or directory at target into pool.
//
// A directory target is expanded to its immediate supported files in name
// order; subdirectories are not descended into. Files that cannot be read
// or mapped are logged and skipped, the batch continues. Only context
// cancellation aborts the run early.
//
// Errors: ErrNoSupportedFiles for an empty directory, a
// *reader.UnsupportedFormatError for a single-file target with an unknown
// extension, the stat error for a missing target, or the context error.
func (o *Orchestrator) Run(ctx context.Context, pool platform.Pool, target string) (*Summary, error) {
	files, skipped, err := o.resolveTarget(target)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Skipped: skipped}
	if skipped > 0 {
		metrics.IncCounter("push.files.total", int64(skipped), metrics.Labels{"status": "skipped"})
	}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		o.processFile(ctx, pool, path, sum)

		if i < len(files)-1 {
			if err := o.Wait(ctx, o.FilePause); err != nil {
				return sum, err
			}
		}
	}

	o.Log.Info("batch finished",
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	return sum, nil
}

// resolveTarget expands target into the ordered list of files to push, plus
// the number of directory entries skipped for an unsupported extension.
func (o *Orchestrator) resolveTarget(target string) ([]string, int, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, 0, fmt.Errorf("stat target: %w", err)
	}

	if !info.IsDir() {
		if ext := reader.Ext(target); !reader.Supported(ext) {
			return nil, 0, &reader.UnsupportedFormatError{Path: target, Ext: ext}
		}
		return []string{target}, 0, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, 0, fmt.Errorf("read target directory: %w", err)
	}

	var files []string
	skipped := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !reader.Supported(reader.Ext(e.Name())) {
			o.Log.Warn("skipping unsupported file", "file", e.Name())
			skipped++
			continue
		}
		files = append(files, filepath.Join(target, e.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		o.Log.Warn("directory contains no supported data files", "dir", target)
		return nil, skipped, ErrNoSupportedFiles
	}
	return files, skipped, nil
}

// processFile runs the read, provision, upload pipeline for one file and
// folds the outcome into sum. Failures are terminal for the file only.
func (o *Orchestrator) processFile(ctx context.Context, pool platform.Pool, path string, sum *Summary) {
	name := filepath.Base(path)

	tbl, cols, err := o.loadFile(path)
	if err != nil {
		o.Log.Warn("skipping file", "file", name, "error", err)
		sum.Failed++
		metrics.IncCounter("push.files.total", 1, metrics.Labels{"status": "failed"})
		o.record(ctx, history.Entry{File: name, PoolID: pool.ID(), Status: "failed", Error: err.Error()})
		return
	}
	metrics.IncCounter("push.records.total", int64(tbl.RowCount()), metrics.Labels{"kind": "read"})

	tableName := reader.TableName(path)

	// Schema declaration is advisory. The upload path creates the table
	// itself when it has to, so a provisioning failure downgrades to a
	// warning and the file still uploads.
	provStart := time.Now()
	if err := o.Provisioner.Ensure(ctx, pool, tableName, cols); err != nil {
		if ctx.Err() != nil {
			sum.Failed++
			return
		}
		o.Log.Warn("schema provisioning failed, uploading anyway",
			"file", name,
			"error", err,
		)
	}
	metrics.ObserveHistogram("push.step.duration_seconds",
		time.Since(provStart).Seconds(), metrics.Labels{"step": "provision"})

	upStart := time.Now()
	res, err := o.Uploader.Upload(ctx, pool, tableName, schema.Names(cols), tbl)
	metrics.ObserveHistogram("push.step.duration_seconds",
		time.Since(upStart).Seconds(), metrics.Labels{"step": "upload"})
	if err != nil {
		o.Log.Error("upload failed", "file", name, "error", err)
		sum.Failed++
		metrics.IncCounter("push.files.total", 1, metrics.Labels{"status": "failed"})
		o.record(ctx, history.Entry{
			File: name, PoolID: pool.ID(), Status: "failed",
			Records: tbl.RowCount(), Error: err.Error(),
		})
		return
	}
	res.File = name

	o.Log.Info(successLine(res))
	sum.Processed++
	sum.Results = append(sum.Results, res)
	metrics.IncCounter("push.files.total", 1, metrics.Labels{"status": "ok"})
	o.record(ctx, history.Entry{
		File: name, PoolID: res.PoolID, Status: "ok",
		Records: res.Records, Inserted: res.Inserted, Chunks: res.Chunks,
		At: res.Time,
	})
}

// loadFile reads path and maps its columns, surfacing sanitization
// collisions before anything is sent to the pool.
func (o *Orchestrator) loadFile(path string) (*table.Table, []schema.ColumnSchema, error) {
	tbl, err := o.Read(path)
	if err != nil {
		return nil, nil, err
	}
	cols, err := schema.Map(tbl)
	if err != nil {
		return nil, nil, err
	}
	return tbl, cols, nil
}

func (o *Orchestrator) record(ctx context.Context, e history.Entry) {
	if o.History == nil {
		return
	}
	if err := o.History.Record(ctx, e); err != nil {
		o.Log.Warn("history record failed", "file", e.File, "error", err)
	}
}

// successLine renders the one-line upload receipt.
func successLine(res *uploader.Result) string {
	line := fmt.Sprintf("SUCCESS | Source: %s | Records: %d | Time: %s | Pool ID: %s | Inserted: %d",
		res.File, res.Records, res.Time.Format("2006-01-02 15:04:05"), res.PoolID, res.Inserted)
	if res.Chunks > 1 {
		line += fmt.Sprintf(" (in %d chunks)", res.Chunks)
	}
	return line
}
