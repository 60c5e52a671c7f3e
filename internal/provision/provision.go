// Package provision makes a best-effort attempt to declare the destination
// table's schema before ingestion, via the platform's job/transformation
// mechanism.
//
// The platform's create/execute path is asynchronous with no observable
// completion signal, so the provisioner is deliberately optimistic: it
// replaces the transformation, triggers the job, waits a fixed settle delay,
// and moves on. Every failure here is tolerated. Ingestion has its own
// create-table fallback and self-heals if the table is not yet visible.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"datapush/internal/pacing"
	"datapush/internal/platform"
	"datapush/internal/schema"
)

// Defaults mirror the fixed names the ingestion flow has always used.
const (
	DefaultJobName            = "TEST_DATA_JOB"
	DefaultTransformationName = "TEST_TRANSFORMATION"
	DefaultSettleDelay        = 10 * time.Second
)

// Provisioner ensures the ingestion job and its single DDL transformation
// exist in the pool, then triggers execution.
type Provisioner struct {
	JobName            string
	TransformationName string

	// SettleDelay is how long to wait after triggering the job. There is no
	// completion polling; this is documented eventual consistency.
	SettleDelay time.Duration

	Wait pacing.Func
	Log  *slog.Logger
}

// New returns a Provisioner with the fixed default names and delays.
func New(log *slog.Logger) *Provisioner {
	return &Provisioner{
		JobName:            DefaultJobName,
		TransformationName: DefaultTransformationName,
		SettleDelay:        DefaultSettleDelay,
		Wait:               pacing.Wait,
		Log:                log,
	}
}

// BuildCreateTableSQL renders the idempotent DDL statement for a table.
//
// It is pure and content-stable: the same schema always yields the same
// statement text, which keeps the delete-and-recreate transformation cycle
// idempotent. Identifiers are double-quoted.
func BuildCreateTableSQL(tableName string, cols []schema.ColumnSchema) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%q %s", c.Name, c.SQLType))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (\n  %s\n);", tableName, strings.Join(parts, ", "))
}

// Ensure runs the provisioning protocol against a pool:
//
//  1. Find the fixed-name job; create it if the lookup misses.
//  2. Build the CREATE TABLE IF NOT EXISTS statement.
//  3. If the fixed-name transformation exists, delete and recreate it with
//     the fresh statement (always replaced, never diffed); otherwise create.
//  4. Execute the job and wait the settle delay.
//
// Errors are returned for logging, but callers proceed to ingestion
// regardless of the outcome.
func (p *Provisioner) Ensure(ctx context.Context, pool platform.Pool, tableName string, cols []schema.ColumnSchema) error {
	log := p.Log.With("table", tableName, "job", p.JobName)

	job, err := p.ensureJob(ctx, pool, log)
	if err != nil {
		return err
	}

	stmt := BuildCreateTableSQL(tableName, cols)
	log.Info("generated DDL statement", "sql", stmt)

	if err := p.ensureTransformation(ctx, job, stmt, log); err != nil {
		return err
	}

	log.Info("executing job to run transformation")
	if err := job.Execute(ctx); err != nil {
		return fmt.Errorf("execute job %s: %w", p.JobName, err)
	}

	// No completion signal exists; give the asynchronous execution time to
	// land before ingestion probes for the table.
	if err := p.Wait(ctx, p.SettleDelay); err != nil {
		return err
	}
	return nil
}

func (p *Provisioner) ensureJob(ctx context.Context, pool platform.Pool, log *slog.Logger) (platform.Job, error) {
	jobs, err := pool.Jobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if job, ok := platform.FindJob(jobs, p.JobName); ok {
		log.Info("found existing data job")
		return job, nil
	}

	log.Info("data job not found, creating")
	job, err := pool.CreateJob(ctx, p.JobName)
	if err != nil {
		return nil, fmt.Errorf("create job %s: %w", p.JobName, err)
	}
	return job, nil
}

func (p *Provisioner) ensureTransformation(ctx context.Context, job platform.Job, stmt string, log *slog.Logger) error {
	ts, err := job.Transformations(ctx)
	if err != nil {
		return fmt.Errorf("list transformations: %w", err)
	}

	if existing, ok := platform.FindTransformation(ts, p.TransformationName); ok {
		log.Info("found existing transformation, recreating with fresh statement",
			"transformation", p.TransformationName)
		if err := existing.Delete(ctx); err != nil {
			return fmt.Errorf("delete transformation %s: %w", p.TransformationName, err)
		}
	} else {
		log.Info("transformation not found, creating", "transformation", p.TransformationName)
	}

	if _, err := job.CreateTransformation(ctx, p.TransformationName, stmt); err != nil {
		return fmt.Errorf("create transformation %s: %w", p.TransformationName, err)
	}
	return nil
}
