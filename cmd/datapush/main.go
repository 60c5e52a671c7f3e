// Command datapush uploads tabular data files into a remote analytics data
// pool. It accepts a single CSV, Parquet or Excel file, or a directory of
// them, declares the table schema through the pool's transformation API, and
// streams the rows up in chunks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"datapush/internal/config"
	"datapush/internal/history"
	"datapush/internal/metrics"
	"datapush/internal/metrics/datadog"
	"datapush/internal/pacing"
	"datapush/internal/platform"
	_ "datapush/internal/platform/celonis"
	"datapush/internal/push"
)

// backendCloser is the minimal interface used by this command to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
//
// When to use:
//   - Unit tests: inject fake platform connections and capture output.
//   - Alternate runtimes: swap the metrics backend or pacing.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	Getenv  func(string) string
	Connect func(ctx context.Context, cfg platform.Config) (platform.Client, error)
	Wait    pacing.Func

	BackendFactory func(ctx context.Context, jobName string, tags []string) (backendCloser, error)
}

// main is intentionally small: it wires real dependencies and exits with a
// code. The .env load is best-effort; a missing file is the normal case.
func main() {
	_ = godotenv.Load()

	code := run(context.Background(), os.Args[1:], deps{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Connect: platform.Connect,
		Wait:    pacing.Wait,
		BackendFactory: func(ctx context.Context, jobName string, tags []string) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName: jobName,
				Tags:    tags,
			})
		},
	})
	os.Exit(code)
}

// run executes the push command and returns an exit code.
//
// Exit codes:
//   - 0: every file uploaded.
//   - 1: at least one file failed, or the batch aborted mid-run.
//   - 2: configuration or connection error, nothing was uploaded.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.Connect == nil {
		d.Connect = platform.Connect
	}
	if d.Wait == nil {
		d.Wait = pacing.Wait
	}

	flags, err := parseFlags(args, d.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Resolve(flags, d.Getenv)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	log := newLogger(d.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsBackend == "datadog" {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(cfg.MetricsTags), "tool:datapush")
		backend, err := d.BackendFactory(ctx, "datapush", tags)
		if err != nil {
			fmt.Fprintf(d.Stderr, "datadog backend init failed: %v\n", err)
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			metrics.SetBackend(nil)
			_ = metrics.Flush()
			_ = backend.Close()
		}()
	}

	client, err := d.Connect(ctx, platform.Config{
		Kind:    "celonis",
		BaseURL: cfg.BaseURL(),
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		fmt.Fprintf(d.Stderr, "platform connection failed: %v\n", err)
		return 2
	}
	defer client.Close()

	pool, err := client.Pool(ctx, cfg.PoolID)
	if err != nil {
		fmt.Fprintf(d.Stderr, "data pool %s not reachable: %v\n", cfg.PoolID, err)
		return 2
	}

	o := push.New(log)
	o.Wait = d.Wait
	o.Provisioner.Wait = d.Wait
	o.Uploader.Wait = d.Wait
	if cfg.ChunkSize > 0 {
		o.Uploader.ChunkSize = cfg.ChunkSize
	}
	if cfg.ChunkPause > 0 {
		o.Uploader.Pause = cfg.ChunkPause
	}
	if cfg.FilePause > 0 {
		o.FilePause = cfg.FilePause
	}
	if cfg.JobName != "" {
		o.Provisioner.JobName = cfg.JobName
	}
	if cfg.TransformationName != "" {
		o.Provisioner.TransformationName = cfg.TransformationName
	}

	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			log.Warn("history disabled", "path", cfg.HistoryPath, "error", err)
		} else {
			defer store.Close()
			o.History = store
		}
	}

	sum, err := o.Run(ctx, pool, cfg.Path)
	if err != nil {
		fmt.Fprintf(d.Stderr, "push failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(d.Stdout, "processed %d file(s), %d skipped, %d failed\n",
		sum.Processed, sum.Skipped, sum.Failed)
	if sum.Failed > 0 {
		return 1
	}
	return 0
}

// parseFlags parses args into the raw flag set. Required values may instead
// come from the environment; config.Resolve decides.
func parseFlags(args []string, stderr io.Writer) (config.Flags, error) {
	fs := flag.NewFlagSet("datapush", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f config.Flags
	fs.StringVar(&f.Path, "path", "", "data file or directory to push (env "+config.EnvDataSourcePath+")")
	fs.StringVar(&f.APIKey, "api-key", "", "platform API key (env "+config.EnvAPIKey+")")
	fs.StringVar(&f.InstanceID, "instance", "", "platform instance id or base URL (env "+config.EnvInstanceID+")")
	fs.StringVar(&f.PoolID, "pool", "", "target data pool id (env "+config.EnvPoolID+")")

	fs.IntVar(&f.ChunkSize, "chunk-size", 0, "rows per upload request (default 100000)")
	fs.DurationVar(&f.ChunkPause, "chunk-pause", 0, "pause between chunks of one file (default 10s)")
	fs.DurationVar(&f.FilePause, "file-pause", 0, "pause between files of a directory batch (default 10s)")

	fs.StringVar(&f.JobName, "job", "", "data job name used for schema declaration")
	fs.StringVar(&f.TransformationName, "transformation", "", "transformation name used for schema declaration")

	fs.StringVar(&f.MetricsBackend, "metrics", "none", "metrics backend: datadog or none")
	fs.StringVar(&f.MetricsTags, "dd-tags", "", "extra Datadog tags, comma separated key:value pairs")

	fs.StringVar(&f.HistoryPath, "history", "", "SQLite file recording per-file outcomes (disabled when empty)")

	fs.StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.LogFormat, "log-format", "text", "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return config.Flags{}, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return config.Flags{}, errors.New("unexpected arguments")
	}
	return f, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
