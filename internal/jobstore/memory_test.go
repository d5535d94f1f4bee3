package jobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sonicmuse/sonicmuse/pkg/control"
)

func TestMemory_SaveAndGet(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	job := NewJob(KindCompose)
	job.Prompt = "calm, soft pads"
	job.Controls = control.SafeDefault

	if err := s.Save(ctx, job); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Prompt != job.Prompt {
		t.Errorf("Prompt = %q, want %q", got.Prompt, job.Prompt)
	}
	if got.Controls != job.Controls {
		t.Errorf("Controls = %+v, want %+v", got.Controls, job.Controls)
	}
	if got.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, StatusRunning)
	}
}

func TestMemory_GetMissing(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestMemory_SaveUpdatesExisting(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	job := NewJob(KindMix)
	if err := s.Save(ctx, job); err != nil {
		t.Fatalf("Save: %v", err)
	}

	job.Status = StatusFailed
	job.Error = "decode failed"
	if err := s.Save(ctx, job); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, StatusFailed)
	}
	if got.Error != "decode failed" {
		t.Errorf("Error = %q, want %q", got.Error, "decode failed")
	}
}

func TestMemory_RecentOrdersNewestFirst(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i := range 5 {
		job := NewJob(KindAnalyze)
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		ids = append(ids, job.ID)
		if err := s.Save(ctx, job); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	jobs, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len(jobs) = %d, want 3", len(jobs))
	}
	if jobs[0].ID != ids[4] {
		t.Errorf("jobs[0].ID = %v, want newest %v", jobs[0].ID, ids[4])
	}
	if jobs[2].ID != ids[2] {
		t.Errorf("jobs[2].ID = %v, want %v", jobs[2].ID, ids[2])
	}
}

func TestMemory_RecentEmptyStore(t *testing.T) {
	s := NewMemory()
	jobs, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("len(jobs) = %d, want 0", len(jobs))
	}
}

func TestMemory_PruneKeepsNewest(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	base := time.Now().UTC()
	var newest uuid.UUID
	for i := range 10 {
		job := NewJob(KindGenerate)
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		newest = job.ID
		if err := s.Save(ctx, job); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if err := s.Prune(ctx, 4); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	jobs, err := s.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("len(jobs) after prune = %d, want 4", len(jobs))
	}
	if jobs[0].ID != newest {
		t.Errorf("newest job was pruned")
	}
}

func TestMemory_Ping(t *testing.T) {
	if err := NewMemory().Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v, want nil", err)
	}
}

func TestNewJob_Defaults(t *testing.T) {
	job := NewJob(KindCompose)
	if job.ID == uuid.Nil {
		t.Error("NewJob produced nil UUID")
	}
	if job.Kind != KindCompose {
		t.Errorf("Kind = %q, want %q", job.Kind, KindCompose)
	}
	if job.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", job.Status, StatusRunning)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}
