package core

import (
	"sort"
	"time"
)

// ModuleStatus is the per-unit state machine of the tracking ledger.
type ModuleStatus string

const (
	StatusPending    ModuleStatus = "pending"
	StatusInProgress ModuleStatus = "in_progress"
	StatusCompleted  ModuleStatus = "completed"
	StatusFailed     ModuleStatus = "failed"
)

// ModuleProgress records one module's slice of the ledger.
type ModuleProgress struct {
	Status      ModuleStatus `json:"status"`
	Count       int          `json:"count"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Tracking is the persisted per-(document, stage[, card type]) ledger that
// makes interrupted stages resumable. Mutated synchronously as modules
// progress; an observer reading it mid-run sees a consistent prefix of
// completed work.
type Tracking struct {
	AnalysisID string                     `json:"analysis_id"`
	DocumentID string                     `json:"document_id"`
	Stage      string                     `json:"stage"`
	CardType   CardType                   `json:"card_type,omitempty"`
	SessionID  string                     `json:"session_id,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
	Modules    map[string]*ModuleProgress `json:"modules"`
}

// NewTracking initializes a ledger with every requested module pending.
func NewTracking(analysisID, documentID, stage string, modules []ContentModule) *Tracking {
	now := time.Now().UTC()
	t := &Tracking{
		AnalysisID: analysisID,
		DocumentID: documentID,
		Stage:      stage,
		StartedAt:  now,
		UpdatedAt:  now,
		Modules:    make(map[string]*ModuleProgress, len(modules)),
	}
	for _, m := range modules {
		t.Modules[string(m)] = &ModuleProgress{Status: StatusPending}
	}
	return t
}

// MarkInProgress transitions a module to in_progress. started_at is set on
// the first transition only and never overwritten.
func (t *Tracking) MarkInProgress(module ContentModule) {
	p := t.progress(module)
	p.Status = StatusInProgress
	if p.StartedAt == nil {
		now := time.Now().UTC()
		p.StartedAt = &now
	}
	t.touch()
}

// MarkCompleted transitions a module to completed with its unit count.
func (t *Tracking) MarkCompleted(module ContentModule, count int) {
	p := t.progress(module)
	now := time.Now().UTC()
	p.Status = StatusCompleted
	p.Count = count
	p.CompletedAt = &now
	p.Error = ""
	t.touch()
}

// MarkFailed transitions a module to failed, recording the error text.
func (t *Tracking) MarkFailed(module ContentModule, errText string) {
	p := t.progress(module)
	now := time.Now().UTC()
	p.Status = StatusFailed
	p.CompletedAt = &now
	p.Error = errText
	t.touch()
}

func (t *Tracking) progress(module ContentModule) *ModuleProgress {
	p, ok := t.Modules[string(module)]
	if !ok {
		p = &ModuleProgress{Status: StatusPending}
		t.Modules[string(module)] = p
	}
	return p
}

func (t *Tracking) touch() {
	t.UpdatedAt = time.Now().UTC()
}

// Status derives the global ledger status. Precedence: all completed wins,
// then any failed, then any in_progress, then partial completion (which
// still counts as in_progress), otherwise pending.
func (t *Tracking) Status() ModuleStatus {
	if len(t.Modules) == 0 {
		return StatusPending
	}
	completed, failed, inProgress := 0, 0, 0
	for _, p := range t.Modules {
		switch p.Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		case StatusInProgress:
			inProgress++
		}
	}
	switch {
	case completed == len(t.Modules):
		return StatusCompleted
	case failed > 0:
		return StatusFailed
	case inProgress > 0:
		return StatusInProgress
	case completed > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// ResumeSet returns the modules still to process: the requested set minus
// those already completed. Failed and pending modules are retried. An empty
// result means the stage can return its persisted metadata untouched.
func (t *Tracking) ResumeSet(requested []ContentModule) []ContentModule {
	out := make([]ContentModule, 0, len(requested))
	for _, m := range requested {
		if p, ok := t.Modules[string(m)]; ok && p.Status == StatusCompleted {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ModuleNames returns the ledger's module names in sorted order, for
// deterministic iteration in status views.
func (t *Tracking) ModuleNames() []string {
	names := make([]string, 0, len(t.Modules))
	for name := range t.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalCount sums the per-module unit counts.
func (t *Tracking) TotalCount() int {
	total := 0
	for _, p := range t.Modules {
		total += p.Count
	}
	return total
}
