package service

import (
	"context"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/extract"
)

const restructurerSpecialist = "restructurer"

// Restructure runs stage 2: per detected module, one gateway call against
// the attached document producing structured items persisted individually.
// The module set is the analysis's detected modules, optionally narrowed by
// an explicit request. Resumable through the tracking ledger; force discards
// the stage's prior output first.
func (p *Pipeline) Restructure(ctx context.Context, documentID, runID string, modules []string, force bool) (*core.Restructuration, error) {
	doc, err := p.documents.Get(documentID)
	if err != nil {
		return nil, err
	}
	analysis, err := p.resolveRun(doc.ID, runID)
	if err != nil {
		return nil, err
	}

	requested := analysis.DetectedModules
	if len(modules) > 0 {
		requested = intersect(core.FilterValidModules(modules), analysis.DetectedModules)
	}
	if len(requested) == 0 {
		return nil, core.ErrValidation(core.CodeNoModulesDetected, "no modules to restructure")
	}

	existing, err := p.items.GetMetadata(doc.ID, analysis.ID)
	if err != nil && !core.IsCategory(err, core.ErrCatNotFound) {
		return nil, err
	}
	if existing != nil && !force {
		ledger, lerr := p.items.GetTracking(doc.ID, analysis.ID)
		if lerr != nil {
			return nil, lerr
		}
		if ledger == nil {
			return nil, core.ErrAlreadyExists("restructuration", doc.ID)
		}
		if len(ledger.ResumeSet(requested)) == 0 {
			return existing, nil
		}
	}
	if force {
		if _, err := p.items.Delete(doc.ID, analysis.ID); err != nil {
			return nil, err
		}
	}

	ledger, err := p.items.GetTracking(doc.ID, analysis.ID)
	if err != nil {
		return nil, err
	}
	if ledger == nil || force {
		ledger = core.NewTracking(analysis.ID, doc.ID, StageRestructure, requested)
	}
	todo := ledger.ResumeSet(requested)

	log := p.logger.WithDocument(doc.ID).WithRun(analysis.ID).WithStage(StageRestructure)
	log.Info("restructuring document", "modules", len(todo))

	system, err := p.prompts.SystemPrompt(restructurerSpecialist)
	if err != nil {
		return nil, err
	}
	session := core.Session{ID: ledger.SessionID, AttachmentPath: doc.Path}

	for _, module := range todo {
		mlog := log.WithModule(string(module))
		ledger.MarkInProgress(module)
		if err := p.items.SaveTracking(doc.ID, analysis.ID, ledger); err != nil {
			return nil, err
		}

		prompt, perr := p.prompts.ModulePrompt(restructurerSpecialist, string(module))
		if perr != nil {
			ledger.MarkFailed(module, perr.Error())
			if serr := p.items.SaveTracking(doc.ID, analysis.ID, ledger); serr != nil {
				return nil, serr
			}
			mlog.Warn("module prompt missing, skipping", "error", perr)
			continue
		}

		resp, gerr := p.gateway.Send(ctx, core.GatewayRequest{
			Prompt:         prompt,
			System:         system,
			AttachmentPath: doc.Path,
			Session:        session,
		})
		if gerr != nil {
			// A broken channel is systemic; record the failure, abort the
			// stage and leave completed modules in the ledger for resume.
			ledger.MarkFailed(module, gerr.Error())
			if serr := p.items.SaveTracking(doc.ID, analysis.ID, ledger); serr != nil {
				return nil, serr
			}
			return nil, gerr
		}
		session = resp.Session
		ledger.SessionID = session.ID

		itemList, xerr := extract.Items(resp.Text)
		if xerr != nil {
			if core.IsGatewayError(xerr) {
				ledger.MarkFailed(module, xerr.Error())
				if serr := p.items.SaveTracking(doc.ID, analysis.ID, ledger); serr != nil {
					return nil, serr
				}
				return nil, xerr
			}
			ledger.MarkFailed(module, xerr.Error())
			if serr := p.items.SaveTracking(doc.ID, analysis.ID, ledger); serr != nil {
				return nil, serr
			}
			continue
		}

		for i, item := range itemList {
			if err := p.items.SaveItem(doc.ID, analysis.ID, module, i+1, item); err != nil {
				return nil, err
			}
		}
		ledger.MarkCompleted(module, len(itemList))
		if err := p.items.SaveTracking(doc.ID, analysis.ID, ledger); err != nil {
			return nil, err
		}
		mlog.Info("module restructured", "items", len(itemList))
	}

	result := &core.Restructuration{
		ID:               core.NewID(),
		AnalysisID:       analysis.ID,
		DocumentID:       doc.ID,
		ModulesProcessed: completedModules(ledger, requested),
		ItemsCount:       completedCounts(ledger),
		RestructuredAt:   time.Now().UTC(),
	}
	if err := p.items.SaveMetadata(result); err != nil {
		return nil, err
	}
	log.Info("restructuring complete", "modules", len(result.ModulesProcessed), "items", ledger.TotalCount())
	return result, nil
}

// intersect keeps the modules of a that are also in b, preserving a's order.
func intersect(a, b []core.ContentModule) []core.ContentModule {
	present := make(map[core.ContentModule]bool, len(b))
	for _, m := range b {
		present[m] = true
	}
	out := make([]core.ContentModule, 0, len(a))
	for _, m := range a {
		if present[m] {
			out = append(out, m)
		}
	}
	return out
}

// completedModules returns the requested modules that reached completed, in
// request order.
func completedModules(t *core.Tracking, requested []core.ContentModule) []core.ContentModule {
	out := make([]core.ContentModule, 0, len(requested))
	for _, m := range requested {
		if p, ok := t.Modules[string(m)]; ok && p.Status == core.StatusCompleted {
			out = append(out, m)
		}
	}
	return out
}

// completedCounts returns the per-module unit counts of completed modules.
func completedCounts(t *core.Tracking) map[string]int {
	out := make(map[string]int, len(t.Modules))
	for name, p := range t.Modules {
		if p.Status == core.StatusCompleted {
			out[name] = p.Count
		}
	}
	return out
}
