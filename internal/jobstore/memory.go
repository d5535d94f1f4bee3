package jobstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Store = (*Memory)(nil)

// Memory is an in-process [Store] used when no database is configured. Jobs
// are held in a map guarded by a mutex.
type Memory struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]Job
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[uuid.UUID]Job)}
}

// Save implements [Store].
func (m *Memory) Save(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

// Get implements [Store].
func (m *Memory) Get(_ context.Context, id uuid.UUID) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// Recent implements [Store].
func (m *Memory) Recent(_ context.Context, limit int) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := m.sortedLocked()
	if limit >= 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Prune implements [Store].
func (m *Memory) Prune(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := m.sortedLocked()
	for i := keep; i < len(jobs); i++ {
		delete(m.jobs, jobs[i].ID)
	}
	return nil
}

// Close implements [Store]. It is a no-op for the in-memory store.
func (m *Memory) Close() {}

// Ping reports the store as always healthy so Memory satisfies the same
// readiness probe interface as a database pool.
func (m *Memory) Ping(_ context.Context) error { return nil }

// sortedLocked returns all jobs newest first. Caller must hold mu.
func (m *Memory) sortedLocked() []Job {
	jobs := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs
}
