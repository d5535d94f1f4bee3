package jobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sonicmuse/sonicmuse/pkg/control"
)

// Compile-time interface check.
var _ Store = (*Postgres)(nil)

const ddlJobs = `
CREATE TABLE IF NOT EXISTS jobs (
    id          UUID         PRIMARY KEY,
    kind        TEXT         NOT NULL,
    status      TEXT         NOT NULL,
    prompt      TEXT         NOT NULL DEFAULT '',
    mood        TEXT         NOT NULL DEFAULT '',
    tempo_bpm   INT          NOT NULL DEFAULT 0,
    key_sig     TEXT         NOT NULL DEFAULT '',
    style_id    TEXT         NOT NULL DEFAULT '',
    trace_id    TEXT         NOT NULL DEFAULT '',
    error       TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at DESC);
`

// Postgres is a [Store] backed by a PostgreSQL jobs table. All operations are
// safe for concurrent use.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool for dsn and runs [Migrate] so the
// jobs table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("jobstore: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("jobstore: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("jobstore: migrate: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Migrate creates or ensures the jobs table exists. It is idempotent and safe
// to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlJobs); err != nil {
		return fmt.Errorf("jobstore migrate: %w", err)
	}
	return nil
}

// Ping probes the database connection, satisfying the readiness checker.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Save implements [Store].
func (p *Postgres) Save(ctx context.Context, job Job) error {
	const q = `
		INSERT INTO jobs
		    (id, kind, status, prompt, mood, tempo_bpm, key_sig, style_id, trace_id, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
		    status     = EXCLUDED.status,
		    prompt     = EXCLUDED.prompt,
		    mood       = EXCLUDED.mood,
		    tempo_bpm  = EXCLUDED.tempo_bpm,
		    key_sig    = EXCLUDED.key_sig,
		    style_id   = EXCLUDED.style_id,
		    trace_id   = EXCLUDED.trace_id,
		    error      = EXCLUDED.error,
		    updated_at = EXCLUDED.updated_at`

	_, err := p.pool.Exec(ctx, q,
		job.ID,
		string(job.Kind),
		string(job.Status),
		job.Prompt,
		string(job.Controls.Mood),
		job.Controls.TempoBPM,
		string(job.Controls.Key),
		job.Controls.StyleID,
		job.TraceID,
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("jobstore: save: %w", err)
	}
	return nil
}

// Get implements [Store].
func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	const q = `
		SELECT id, kind, status, prompt, mood, tempo_bpm, key_sig, style_id, trace_id, error, created_at, updated_at
		FROM   jobs
		WHERE  id = $1`

	rows, err := p.pool.Query(ctx, q, id)
	if err != nil {
		return Job{}, fmt.Errorf("jobstore: get: %w", err)
	}
	job, err := pgx.CollectOneRow(rows, scanJob)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("jobstore: get: %w", err)
	}
	return job, nil
}

// Recent implements [Store].
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Job, error) {
	const q = `
		SELECT id, kind, status, prompt, mood, tempo_bpm, key_sig, style_id, trace_id, error, created_at, updated_at
		FROM   jobs
		ORDER  BY created_at DESC
		LIMIT  $1`

	rows, err := p.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("jobstore: recent: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, scanJob)
	if err != nil {
		return nil, fmt.Errorf("jobstore: recent: %w", err)
	}
	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}

// Prune implements [Store].
func (p *Postgres) Prune(ctx context.Context, keep int) error {
	const q = `
		DELETE FROM jobs
		WHERE  id NOT IN (
		    SELECT id FROM jobs ORDER BY created_at DESC LIMIT $1
		)`

	if _, err := p.pool.Exec(ctx, q, keep); err != nil {
		return fmt.Errorf("jobstore: prune: %w", err)
	}
	return nil
}

// Close implements [Store].
func (p *Postgres) Close() {
	p.pool.Close()
}

// scanJob scans one pgx row into a Job.
func scanJob(row pgx.CollectableRow) (Job, error) {
	var (
		j                           Job
		kind, status, mood, key, st string
	)
	if err := row.Scan(
		&j.ID,
		&kind,
		&status,
		&j.Prompt,
		&mood,
		&j.Controls.TempoBPM,
		&key,
		&st,
		&j.TraceID,
		&j.Error,
		&j.CreatedAt,
		&j.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	j.Kind = Kind(kind)
	j.Status = Status(status)
	j.Controls.Mood = control.Mood(mood)
	j.Controls.Key = control.Key(key)
	j.Controls.StyleID = st
	return j, nil
}
