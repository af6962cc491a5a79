package service

import (
	"context"
	"os"

	"github.com/Antoine93/anki-doc-master/internal/core"
	"github.com/Antoine93/anki-doc-master/internal/extract"
)

// specialist and prompt ids for stage 1.
const (
	analystSpecialist   = "analyst"
	analystDetectPrompt = "detect_modules"
)

// Analyze runs stage 1: a single gateway call with the document attached,
// producing the set of detected content modules. A fresh analysis starts a
// new run partition and advances the document's latest pointer; prior runs
// stay addressable by id.
func (p *Pipeline) Analyze(ctx context.Context, documentID string, force bool) (*core.Analysis, error) {
	doc, err := p.documents.Get(documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(doc.Path); err != nil {
		return nil, core.ErrNotFound("source file", doc.Path).WithCause(err)
	}

	if _, err := p.analyses.LatestRunID(doc.ID); err == nil && !force {
		return nil, core.ErrAlreadyExists("analysis", doc.ID)
	}

	log := p.logger.WithDocument(doc.ID).WithStage(StageAnalyze)
	log.Info("analyzing document", "path", doc.Path)

	system, err := p.prompts.SystemPrompt(analystSpecialist)
	if err != nil {
		return nil, err
	}
	prompt, err := p.prompts.ModulePrompt(analystSpecialist, analystDetectPrompt)
	if err != nil {
		return nil, err
	}

	resp, err := p.gateway.Send(ctx, core.GatewayRequest{
		Prompt:         prompt,
		System:         system,
		AttachmentPath: doc.Path,
	})
	if err != nil {
		return nil, err
	}

	names, err := extract.Modules(resp.Text)
	if err != nil {
		return nil, err
	}
	modules := core.FilterValidModules(names)
	if len(modules) == 0 {
		return nil, core.ErrValidation(core.CodeNoModulesDetected, "no content modules detected in document")
	}

	analysis := core.NewAnalysis(doc.ID, modules)
	if err := p.analyses.Save(analysis); err != nil {
		return nil, err
	}
	log.Info("analysis complete", "run", analysis.ID, "modules", len(modules))
	return analysis, nil
}
