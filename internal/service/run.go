package service

import (
	"context"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

// RunResult aggregates the records of a full pipeline pass.
type RunResult struct {
	Analysis        *core.Analysis        `json:"analysis"`
	Restructuration *core.Restructuration `json:"restructuration"`
	Generation      *core.Generation      `json:"generation"`
	Optimization    *core.Optimization    `json:"optimization"`
	Formatting      *core.Formatting      `json:"formatting"`
}

// Run executes all five stages in sequence for one document and card type.
// Each stage resolves the run the analysis produced, so the whole pass is
// co-located under one partition. With force=false a previously completed
// pipeline short-circuits stage by stage through the resume contract.
func (p *Pipeline) Run(ctx context.Context, documentID, cardType string, force bool) (*RunResult, error) {
	result := &RunResult{}

	analysis, err := p.Analyze(ctx, documentID, force)
	if err != nil {
		if !core.IsCategory(err, core.ErrCatAlreadyExists) {
			return nil, err
		}
		// reuse the latest run
		analysis, err = p.analyses.Get(documentID, "")
		if err != nil {
			return nil, err
		}
	}
	result.Analysis = analysis
	runID := analysis.ID

	if result.Restructuration, err = p.Restructure(ctx, documentID, runID, nil, force); err != nil {
		return nil, err
	}
	if result.Generation, err = p.Generate(ctx, documentID, runID, cardType, nil, force); err != nil {
		return nil, err
	}
	if result.Optimization, err = p.Optimize(ctx, documentID, runID, cardType, "", force); err != nil {
		return nil, err
	}
	if result.Formatting, err = p.Format(ctx, documentID, runID, cardType, force); err != nil {
		if !core.IsCategory(err, core.ErrCatAlreadyExists) {
			return nil, err
		}
		if result.Formatting, err = p.anki.GetFormatting(documentID, runID, core.CardType(cardType)); err != nil {
			return nil, err
		}
	}
	return result, nil
}
