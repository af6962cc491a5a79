package service

import (
	"context"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

// StageStatus is one stage's slice of the status view.
type StageStatus struct {
	Status   core.ModuleStatus `json:"status"`
	Tracking *core.Tracking    `json:"tracking,omitempty"`
}

// DocumentStatus is the tracking view of one analysis run.
type DocumentStatus struct {
	Document    *core.Document          `json:"document"`
	Analysis    *core.Analysis          `json:"analysis"`
	Restructure *StageStatus            `json:"restructure,omitempty"`
	Generate    map[string]*StageStatus `json:"generate,omitempty"`
	Optimize    map[string]*StageStatus `json:"optimize,omitempty"`
}

// Status reads the tracking ledgers of one run into a single view. An empty
// runID resolves the latest run.
func (p *Pipeline) Status(ctx context.Context, documentID, runID string) (*DocumentStatus, error) {
	doc, err := p.documents.Get(documentID)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(doc.ID, runID)
	if err != nil {
		return nil, err
	}

	view := &DocumentStatus{
		Document: doc,
		Analysis: analysis,
		Generate: map[string]*StageStatus{},
		Optimize: map[string]*StageStatus{},
	}

	if t, err := p.items.GetTracking(doc.ID, analysis.ID); err != nil {
		return nil, err
	} else if t != nil {
		view.Restructure = &StageStatus{Status: t.Status(), Tracking: t}
	}

	for _, ct := range core.ValidCardTypes() {
		if t, err := p.cards.GetTracking(doc.ID, analysis.ID, ct, false); err != nil {
			return nil, err
		} else if t != nil {
			view.Generate[string(ct)] = &StageStatus{Status: t.Status(), Tracking: t}
		}
		if t, err := p.cards.GetTracking(doc.ID, analysis.ID, ct, true); err != nil {
			return nil, err
		} else if t != nil {
			view.Optimize[string(ct)] = &StageStatus{Status: t.Status(), Tracking: t}
		}
	}
	return view, nil
}
