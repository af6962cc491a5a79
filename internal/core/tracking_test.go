package core

import (
	"testing"
	"time"
)

func TestTracking_ModuleStateMachine(t *testing.T) {
	tr := NewTracking("run1", "doc1", "generation", []ContentModule{ModuleThemes})

	p := tr.Modules["themes"]
	if p.Status != StatusPending {
		t.Fatalf("expected pending, got %s", p.Status)
	}

	tr.MarkInProgress(ModuleThemes)
	if p.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", p.Status)
	}
	if p.StartedAt == nil {
		t.Fatalf("expected started_at to be set")
	}
	first := *p.StartedAt

	time.Sleep(time.Millisecond)
	tr.MarkInProgress(ModuleThemes)
	if !p.StartedAt.Equal(first) {
		t.Fatalf("started_at must not be overwritten on re-entry")
	}

	tr.MarkCompleted(ModuleThemes, 7)
	if p.Status != StatusCompleted || p.Count != 7 {
		t.Fatalf("unexpected terminal state: %s count=%d", p.Status, p.Count)
	}
	if p.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
}

func TestTracking_MarkFailedRecordsError(t *testing.T) {
	tr := NewTracking("run1", "doc1", "generation", []ContentModule{ModuleCode})
	tr.MarkInProgress(ModuleCode)
	tr.MarkFailed(ModuleCode, "boom")

	p := tr.Modules["code"]
	if p.Status != StatusFailed || p.Error != "boom" {
		t.Fatalf("expected failed with error text, got %s %q", p.Status, p.Error)
	}
	if p.CompletedAt == nil {
		t.Fatalf("expected completed_at on failure")
	}
}

func TestTracking_GlobalStatusPrecedence(t *testing.T) {
	mods := []ContentModule{ModuleThemes, ModuleVocabulary, ModuleTables}

	tests := []struct {
		name  string
		setup func(*Tracking)
		want  ModuleStatus
	}{
		{
			name:  "all pending",
			setup: func(tr *Tracking) {},
			want:  StatusPending,
		},
		{
			name: "all completed",
			setup: func(tr *Tracking) {
				tr.MarkCompleted(ModuleThemes, 1)
				tr.MarkCompleted(ModuleVocabulary, 2)
				tr.MarkCompleted(ModuleTables, 3)
			},
			want: StatusCompleted,
		},
		{
			name: "any failed wins over in progress",
			setup: func(tr *Tracking) {
				tr.MarkFailed(ModuleThemes, "x")
				tr.MarkInProgress(ModuleVocabulary)
			},
			want: StatusFailed,
		},
		{
			name: "in progress",
			setup: func(tr *Tracking) {
				tr.MarkInProgress(ModuleThemes)
			},
			want: StatusInProgress,
		},
		{
			name: "partial completion counts as in progress",
			setup: func(tr *Tracking) {
				tr.MarkCompleted(ModuleThemes, 1)
			},
			want: StatusInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracking("run1", "doc1", "generation", mods)
			tt.setup(tr)
			if got := tr.Status(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTracking_ResumeSet(t *testing.T) {
	mods := []ContentModule{ModuleThemes, ModuleVocabulary, ModuleTables}
	tr := NewTracking("run1", "doc1", "generation", mods)
	tr.MarkCompleted(ModuleThemes, 4)
	tr.MarkFailed(ModuleVocabulary, "parse")

	resume := tr.ResumeSet(mods)
	if len(resume) != 2 {
		t.Fatalf("expected 2 modules to resume, got %v", resume)
	}
	if resume[0] != ModuleVocabulary || resume[1] != ModuleTables {
		t.Fatalf("failed and pending modules must be retried in order, got %v", resume)
	}
}

func TestTracking_ResumeSetEmptyWhenAllCompleted(t *testing.T) {
	mods := []ContentModule{ModuleThemes}
	tr := NewTracking("run1", "doc1", "restructuration", mods)
	tr.MarkCompleted(ModuleThemes, 2)
	if got := tr.ResumeSet(mods); len(got) != 0 {
		t.Fatalf("expected empty resume set, got %v", got)
	}
}

func TestTracking_TotalCount(t *testing.T) {
	tr := NewTracking("run1", "doc1", "generation", []ContentModule{ModuleThemes, ModuleCode})
	tr.MarkCompleted(ModuleThemes, 5)
	tr.MarkCompleted(ModuleCode, 3)
	if tr.TotalCount() != 8 {
		t.Fatalf("expected total 8, got %d", tr.TotalCount())
	}
}
