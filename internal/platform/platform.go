// Package platform defines the typed capability interface the push pipeline
// consumes for the remote analytics platform, and a backend registry so the
// concrete client (HTTP, fakes in tests) is chosen by configuration.
//
// The interface is intentionally narrow: exactly the operations the pipeline
// needs (pool lookup, job/transformation lifecycle, table append/create).
// Everything else about the platform is out of scope.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is the sentinel for lookup misses: a job, transformation, or
// table that does not exist in the pool. Callers branch on it with errors.Is.
var ErrNotFound = errors.New("platform: not found")

// Rows is a positional row batch: Columns names the fields, every row in
// Values is aligned with it. This is the only payload shape crossing the
// capability boundary.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Client is a connected platform handle.
type Client interface {
	// Pool resolves a data pool by id.
	Pool(ctx context.Context, id string) (Pool, error)
	// Close releases the underlying transport. Call once at shutdown.
	Close() error
}

// Pool is the destination grouping for tables, jobs, and transformations.
type Pool interface {
	ID() string

	Jobs(ctx context.Context) ([]Job, error)
	CreateJob(ctx context.Context, name string) (Job, error)

	// Table returns a handle for an existing table, or ErrNotFound.
	Table(ctx context.Context, name string) (Table, error)
	// CreateTable creates a table from a row batch, returning the number of
	// records inserted. Used as the fallback when Append fails.
	CreateTable(ctx context.Context, rows Rows, name string) (int, error)
}

// Job is a named container for transformations within a pool.
type Job interface {
	Name() string

	Transformations(ctx context.Context) ([]Transformation, error)
	CreateTransformation(ctx context.Context, name, statement string) (Transformation, error)

	// Execute triggers the job asynchronously. There is no completion
	// signal; callers wait a settle delay and move on.
	Execute(ctx context.Context) error
}

// Transformation is a named SQL statement under a job.
type Transformation interface {
	Name() string
	Statement() string
	Delete(ctx context.Context) error
}

// Table is a handle to an existing destination table.
type Table interface {
	Name() string
	// Append appends a row batch, returning the number of records inserted.
	Append(ctx context.Context, rows Rows) (int, error)
}

// FindJob returns the job with the given name, or false.
func FindJob(jobs []Job, name string) (Job, bool) {
	for _, j := range jobs {
		if j.Name() == name {
			return j, true
		}
	}
	return nil, false
}

// FindTransformation returns the transformation with the given name, or false.
func FindTransformation(ts []Transformation, name string) (Transformation, bool) {
	for _, t := range ts {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// ---- backend registry (one factory per kind) ----

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "celonis".
	Kind    string
	BaseURL string
	APIKey  string
}

type factory func(ctx context.Context, cfg Config) (Client, error)

var (
	regMu     sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend factory under a kind. Backend packages call
// this from init(); the binary selects backends via blank imports.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Failing fast here avoids ambiguous
//     backend selection.
func Register(kind string, f factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if kind == "" {
		panic("platform: Register called with empty kind")
	}
	if f == nil {
		panic("platform: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("platform: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// Connect constructs a Client using the registered factory for cfg.Kind.
//
// Errors:
//   - If cfg.Kind is empty or not registered.
//   - Whatever the factory returns.
func Connect(ctx context.Context, cfg Config) (Client, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("platform: missing Kind")
	}

	regMu.RLock()
	f := factories[cfg.Kind]
	regMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported platform kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
