// Package jobstore persists composition job records so results can be listed
// and fetched after the fact.
//
// Two implementations are provided: [Postgres], backed by a pgx connection
// pool, and [Memory], a bounded in-process store used when no database is
// configured.
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sonicmuse/sonicmuse/pkg/control"
)

// ErrNotFound is returned by [Store.Get] when no job with the given ID exists.
var ErrNotFound = errors.New("jobstore: job not found")

// Kind identifies which pipeline operation produced a job.
type Kind string

const (
	KindAnalyze  Kind = "analyze"
	KindGenerate Kind = "generate"
	KindMix      Kind = "mix"
	KindCompose  Kind = "compose"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one recorded pipeline invocation. Controls and Prompt are only set
// for kinds that derive them (analyze, generate, compose). TraceID links the
// record to the request trace behind it, matching the X-Correlation-ID the
// client received.
type Job struct {
	ID        uuid.UUID        `json:"id"`
	Kind      Kind             `json:"kind"`
	Status    Status           `json:"status"`
	Prompt    string           `json:"prompt,omitempty"`
	Controls  control.Controls `json:"controls,omitempty"`
	TraceID   string           `json:"trace_id,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewJob returns a running job of the given kind with a fresh random ID.
func NewJob(kind Kind) Job {
	now := time.Now().UTC()
	return Job{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists jobs. All implementations are safe for concurrent use.
type Store interface {
	// Save inserts or updates a job by ID.
	Save(ctx context.Context, job Job) error

	// Get returns the job with the given ID, or [ErrNotFound].
	Get(ctx context.Context, id uuid.UUID) (Job, error)

	// Recent returns up to limit jobs ordered newest first.
	Recent(ctx context.Context, limit int) ([]Job, error)

	// Prune deletes all but the newest keep jobs.
	Prune(ctx context.Context, keep int) error

	// Close releases underlying resources.
	Close()
}
